package transform

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/sjson"

	"github.com/n0madic/go-chatkit/internal/types"
)

// BodyOptions are the per-call settings serialized alongside a request.
type BodyOptions struct {
	Stream         bool
	PromptCacheKey string
}

// ChatMessages converts canonical messages to Chat Completions messages.
func ChatMessages(msgs []types.Message) []types.ChatMessage {
	out := make([]types.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := types.ChatMessage{Role: string(m.Role), Name: m.Name}
		switch m.Role {
		case types.RoleUser:
			cm.Content = chatUserContent(m.Content)
		case types.RoleAssistant:
			if text := m.Content.Flatten(); text != "" {
				cm.Content = text
			}
			for _, tc := range m.ToolCalls {
				cm.ToolCalls = append(cm.ToolCalls, types.ChatToolCall{
					ID:       tc.ID,
					Type:     "function",
					Function: types.FunctionCall{Name: tc.Name, Arguments: tc.Arguments},
				})
			}
			cm.Reasoning = m.Reasoning
			cm.ReasoningDetails = m.ReasoningDetails
			if cm.Content == nil && len(cm.ToolCalls) == 0 {
				cm.Content = ""
			}
		case types.RoleTool:
			cm.Content = m.Content.Flatten()
			cm.ToolCallID = m.ToolCallID
		default:
			cm.Content = m.Content.Flatten()
		}
		out = append(out, cm)
	}
	return out
}

func chatUserContent(c types.Content) any {
	if !c.IsParts() {
		return c.Text
	}
	parts := make([]types.ChatContentPart, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch p.Type {
		case types.PartText:
			parts = append(parts, types.ChatContentPart{Type: "text", Text: p.Text})
		case types.PartImage:
			parts = append(parts, types.ChatContentPart{
				Type:     "image_url",
				ImageURL: &types.ImageURL{URL: p.ImageURL, Detail: p.ImageDetail},
			})
		case types.PartAudio:
			parts = append(parts, types.ChatContentPart{
				Type:       "input_audio",
				InputAudio: &types.InputAudio{Data: p.AudioData, Format: p.AudioFormat},
			})
		}
	}
	return parts
}

// CompletionsBody serializes a request for a Chat Completions backend.
func CompletionsBody(req types.Request, opts BodyOptions) ([]byte, error) {
	payload := types.ChatCompletionRequest{
		Model:               req.Model,
		Messages:            ChatMessages(req.Messages),
		Stream:              opts.Stream,
		Tools:               ChatTools(req.Tools),
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxCompletionTokens,
	}
	if req.Reasoning != nil {
		payload.ReasoningEffort = req.Reasoning.Effort
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completions payload: %w", err)
	}
	return mergeExtraBody(body, req.ExtraBody)
}

// mergeExtraBody sets each extra field on the serialized body. Keys are
// applied in sorted order and may use sjson paths.
func mergeExtraBody(body []byte, extra map[string]any) ([]byte, error) {
	if len(extra) == 0 {
		return body, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var err error
	for _, k := range keys {
		body, err = sjson.SetBytes(body, k, extra[k])
		if err != nil {
			return nil, fmt.Errorf("failed to merge body field %q: %w", k, err)
		}
	}
	return body, nil
}
