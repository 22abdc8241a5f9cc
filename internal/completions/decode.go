package completions

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
	"github.com/n0madic/go-chatkit/internal/upstream"
)

// DecodeResponse converts a non-streaming Completions body into events in the
// same order a stream of the same content would produce.
func DecodeResponse(body []byte, opts Options) ([]types.Event, error) {
	if berr := upstream.ExtractBackendError(body); berr != nil {
		return nil, berr
	}
	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode completions response: %w", err)
	}
	r := NewReducer(opts)
	if len(resp.Choices) == 0 {
		return r.Finish(), nil
	}
	choice := resp.Choices[0]
	if choice.FinishReason != nil {
		r.finish = *choice.FinishReason
	}
	msg := choice.Message
	calls := make([]types.ToolCallDelta, len(msg.ToolCalls))
	for i, tc := range msg.ToolCalls {
		idx := i
		tc.Index = &idx
		calls[i] = tc
	}
	out := r.applyDelta(msg.Reasoning, msg.ReasoningContent, msg.Content, calls, msg.Images)
	return append(out, r.Finish()...), nil
}

// ParseDataURL decodes "data:<mime>;base64,<payload>" or a bare base64
// string into an image.
func ParseDataURL(s string) (types.Image, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return types.Image{}, false
	}
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		header, payload, found := strings.Cut(rest, ",")
		if !found {
			return types.Image{}, false
		}
		mime, params, _ := strings.Cut(header, ";")
		if !strings.Contains(params, "base64") {
			return types.Image{}, false
		}
		data, err := decodeBase64(payload)
		if err != nil {
			return types.Image{}, false
		}
		return types.Image{Data: data, MimeType: mime}, true
	}
	if strings.Contains(s, "://") {
		return types.Image{}, false
	}
	data, err := decodeBase64(s)
	if err != nil {
		return types.Image{}, false
	}
	return types.Image{Data: data}, true
}

func decodeBase64(s string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
