package responses

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/n0madic/go-chatkit/internal/stream"
	"github.com/n0madic/go-chatkit/internal/types"
	"github.com/n0madic/go-chatkit/internal/upstream"
)

// DecodeResponse converts a non-streaming Responses body into events.
// Message content that has no text representation becomes a placeholder
// such as [AUDIO] or [IMAGE].
func DecodeResponse(body []byte) ([]types.Event, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode responses body: %w", ErrInvalidEvent)
	}
	if berr := upstream.ExtractBackendError(body); berr != nil {
		return nil, berr
	}
	root := gjson.ParseBytes(body)

	var (
		out     []types.Event
		tools   stream.ItemCollector
		refusal bool
	)
	for i, item := range root.Get("output").Array() {
		switch item.Get("type").String() {
		case "message":
			var text, reasoningParts []string
			for _, part := range item.Get("content").Array() {
				typ := part.Get("type").String()
				if strings.Contains(typ, "refusal") {
					refusal = true
				}
				if strings.Contains(typ, "reasoning") {
					if t := part.Get("text"); t.Exists() {
						reasoningParts = append(reasoningParts, t.String())
					}
					continue
				}
				if s, ok := partText(part, typ); ok {
					text = append(text, s)
				}
			}
			if len(reasoningParts) > 0 {
				out = append(out, types.ReasoningEvent(strings.Join(reasoningParts, "\n")))
			}
			if len(text) > 0 {
				out = append(out, types.TextEvent(strings.Join(text, "")))
			}
		case "reasoning":
			var parts []string
			for _, s := range item.Get("summary").Array() {
				parts = append(parts, s.Get("text").String())
			}
			for _, c := range item.Get("content").Array() {
				parts = append(parts, c.Get("text").String())
			}
			if joined := strings.Join(nonEmpty(parts), "\n"); joined != "" {
				out = append(out, types.ReasoningEvent(joined))
			}
		case "function_call":
			id := item.Get("id").String()
			if id == "" {
				id = fmt.Sprintf("output_%d", i)
			}
			tools.Done(id, item.Get("call_id").String(), item.Get("name").String(), item.Get("arguments").String())
		}
	}

	calls := tools.Finalize()
	for _, call := range calls {
		out = append(out, types.ToolEvent(call))
	}

	reason := types.FinishStop
	switch {
	case refusal:
		reason = types.FinishRefusal
	case strings.EqualFold(root.Get("status").String(), "incomplete"):
		reason = types.FinishLength
	case len(calls) > 0:
		reason = types.FinishToolCalls
	}
	return append(out, types.FinishEvent(reason)), nil
}

func partText(part gjson.Result, typ string) (string, bool) {
	text := part.Get("text")
	switch {
	case typ == "output_text" || typ == "input_text":
		return text.String(), text.Exists()
	case strings.Contains(typ, "refusal"):
		return placeholder(part, "refusal", "[REFUSAL]"), true
	case strings.Contains(typ, "audio"):
		return placeholder(part, "transcript", "[AUDIO]"), true
	case strings.Contains(typ, "image"):
		return placeholder(part, "", "[IMAGE]"), true
	case strings.Contains(typ, "file"):
		return placeholder(part, "", "[FILE]"), true
	}
	return "", false
}

func placeholder(part gjson.Result, altKey, fallback string) string {
	if t := part.Get("text"); t.Exists() {
		return t.String()
	}
	if altKey != "" {
		if t := part.Get(altKey); t.Exists() {
			return t.String()
		}
	}
	return fallback
}

func nonEmpty(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
