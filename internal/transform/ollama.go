package transform

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
)

// OllamaImage converts an image reference to the raw base64 string Ollama
// expects. Remote URLs are not supported and report false.
func OllamaImage(ref string) (string, bool) {
	s := strings.TrimSpace(ref)
	if s == "" || strings.Contains(s, "://") {
		return "", false
	}
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 || !strings.Contains(s[:comma], ";base64") {
			return "", false
		}
		s = s[comma+1:]
	}
	return strings.NewReplacer("\n", "", "\r", "").Replace(s), s != ""
}

// OllamaMessages converts canonical messages to Ollama chat messages.
// Audio parts have no Ollama equivalent and are dropped.
func OllamaMessages(msgs []types.Message) []types.OllamaMessage {
	out := make([]types.OllamaMessage, 0, len(msgs))
	for _, m := range msgs {
		om := types.OllamaMessage{Role: string(m.Role)}
		if m.Role == types.RoleDeveloper {
			om.Role = string(types.RoleSystem)
		}
		if m.Content.IsParts() {
			var texts []string
			for _, p := range m.Content.Parts {
				switch p.Type {
				case types.PartText:
					texts = append(texts, p.Text)
				case types.PartImage:
					if img, ok := OllamaImage(p.ImageURL); ok {
						om.Images = append(om.Images, img)
					} else {
						slog.Debug("ollama.image_skipped", "url", truncate(p.ImageURL, 64))
					}
				}
			}
			om.Content = strings.Join(texts, "\n")
		} else {
			om.Content = m.Content.Text
		}
		if m.Role == types.RoleAssistant {
			om.Thinking = m.Reasoning
			for _, tc := range m.ToolCalls {
				om.ToolCalls = append(om.ToolCalls, types.OllamaToolCall{
					Function: types.OllamaFunctionCall{Name: tc.Name, Arguments: decodeArguments(tc.Arguments)},
				})
			}
		}
		out = append(out, om)
	}
	return out
}

// decodeArguments parses a JSON argument string into an object. Anything
// that is not a JSON object yields an empty map.
func decodeArguments(s string) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(s) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return map[string]any{}
	}
	return args
}

// OllamaBody serializes a request for the Ollama chat endpoint.
func OllamaBody(req types.Request, stream bool) ([]byte, error) {
	payload := types.OllamaChatRequest{
		Model:    req.Model,
		Messages: OllamaMessages(req.Messages),
		Tools:    ChatTools(req.Tools),
		Stream:   stream,
	}
	opts := map[string]any{}
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if req.MaxCompletionTokens != nil {
		opts["num_predict"] = *req.MaxCompletionTokens
	}
	if len(opts) > 0 {
		payload.Options = opts
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama payload: %w", err)
	}
	return mergeExtraBody(body, req.ExtraBody)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
