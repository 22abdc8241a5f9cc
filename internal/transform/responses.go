package transform

import (
	"encoding/json"
	"fmt"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/sjson"

	"github.com/n0madic/go-chatkit/internal/normalize"
	"github.com/n0madic/go-chatkit/internal/types"
)

// pendingAudio is an audio part appended to an input item after the SDK
// params are serialized.
type pendingAudio struct {
	item int
	part types.ContentPart
}

// responsesParams converts a request to SDK params. System and developer
// turns become the instructions. Audio parts are returned separately.
func responsesParams(req types.Request) (responses.ResponseNewParams, []pendingAudio) {
	instructions, rest := normalize.Instructions(req.Messages)

	items := make(responses.ResponseInputParam, 0, len(rest))
	var audio []pendingAudio
	for _, m := range rest {
		switch m.Role {
		case types.RoleUser:
			content := make(responses.ResponseInputMessageContentListParam, 0, 1)
			var clips []types.ContentPart
			if !m.Content.IsParts() {
				content = append(content, responses.ResponseInputContentParamOfInputText(m.Content.Text))
			}
			for _, p := range m.Content.Parts {
				switch p.Type {
				case types.PartText:
					content = append(content, responses.ResponseInputContentParamOfInputText(p.Text))
				case types.PartImage:
					detail := p.ImageDetail
					if detail == "" {
						detail = "auto"
					}
					content = append(content, responses.ResponseInputContentUnionParam{
						OfInputImage: &responses.ResponseInputImageParam{
							ImageURL: openai.String(p.ImageURL),
							Detail:   responses.ResponseInputImageDetail(detail),
						},
					})
				case types.PartAudio:
					clips = append(clips, p)
				}
			}
			for _, clip := range clips {
				audio = append(audio, pendingAudio{item: len(items), part: clip})
			}
			items = append(items, responses.ResponseInputItemParamOfMessage(content, responses.EasyInputMessageRoleUser))

		case types.RoleAssistant:
			if text := m.Content.Flatten(); text != "" {
				content := []responses.ResponseOutputMessageContentUnionParam{{
					OfOutputText: &responses.ResponseOutputTextParam{Text: text},
				}}
				items = append(items, responses.ResponseInputItemParamOfOutputMessage(content, "", responses.ResponseOutputMessageStatusCompleted))
			}
			for _, tc := range m.ToolCalls {
				items = append(items, responses.ResponseInputItemParamOfFunctionCall(tc.Arguments, tc.ID, tc.Name))
			}

		case types.RoleTool:
			items = append(items, responses.ResponseInputItemParamOfFunctionCallOutput(m.ToolCallID, m.Content.Flatten()))
		}
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{OfInputItemList: items},
		Tools: ResponsesTools(req.Tools),
	}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.MaxCompletionTokens != nil {
		params.MaxOutputTokens = openai.Int(int64(*req.MaxCompletionTokens))
	}
	if req.Reasoning != nil {
		params.Reasoning = reasoningToSDK(req.Reasoning)
	}
	return params, audio
}

// ResponsesBody serializes a request for a Responses backend.
func ResponsesBody(req types.Request, opts BodyOptions) ([]byte, error) {
	params, audio := responsesParams(req)
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal responses payload: %w", err)
	}
	for _, a := range audio {
		body, err = sjson.SetBytes(body, fmt.Sprintf("input.%d.content.-1", a.item), map[string]any{
			"type":        "input_audio",
			"input_audio": map[string]string{"data": a.part.AudioData, "format": a.part.AudioFormat},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add audio input: %w", err)
		}
	}
	if body, err = sjson.SetBytes(body, "stream", opts.Stream); err != nil {
		return nil, err
	}
	if opts.PromptCacheKey != "" {
		if body, err = sjson.SetBytes(body, "prompt_cache_key", opts.PromptCacheKey); err != nil {
			return nil, err
		}
	}
	return mergeExtraBody(body, req.ExtraBody)
}

func reasoningToSDK(r *types.ReasoningParam) shared.ReasoningParam {
	sp := shared.ReasoningParam{}
	if r.Effort != "" {
		sp.Effort = shared.ReasoningEffort(r.Effort)
	}
	if r.Summary != "" {
		sp.Summary = shared.ReasoningSummary(r.Summary)
	}
	return sp
}
