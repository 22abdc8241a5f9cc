package completions

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/n0madic/go-chatkit/internal/reasoning"
	"github.com/n0madic/go-chatkit/internal/stream"
	"github.com/n0madic/go-chatkit/internal/types"
	"github.com/n0madic/go-chatkit/internal/upstream"
)

// Options configures a Reducer.
type Options struct {
	// StartMarker and EndMarker delimit inline reasoning; empty means <think>.
	StartMarker string
	EndMarker   string
	// OnError receives decode errors and backend-reported errors. The stream
	// continues after either.
	OnError func(error)
}

// Reducer turns Completions stream payloads into canonical events. It owns
// the per-stream extractor and tool collector and must not be shared between
// streams.
type Reducer struct {
	extractor *reasoning.Extractor
	tools     stream.IndexCollector
	finish    string
	signaled  int
	onError   func(error)
}

// NewReducer returns a Reducer for one stream.
func NewReducer(opts Options) *Reducer {
	return &Reducer{
		extractor: reasoning.NewExtractor(opts.StartMarker, opts.EndMarker),
		onError:   opts.OnError,
	}
}

// Push consumes one SSE data payload and returns the events it completes,
// ordered reasoning, then content, then images.
func (r *Reducer) Push(data []byte) []types.Event {
	if berr := upstream.ExtractBackendError(data); berr != nil {
		r.report(berr)
		return nil
	}
	var chunk types.ChatCompletionChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		slog.Warn("completions.decode_failed", "err", err, "payload_len", len(data))
		r.report(fmt.Errorf("decode completions chunk: %w: %w", stream.ErrMalformedPayload, err))
		return nil
	}
	if len(chunk.Choices) == 0 {
		return nil
	}
	choice := chunk.Choices[0]
	if choice.FinishReason != nil && *choice.FinishReason != "" {
		r.finish = *choice.FinishReason
	}
	return r.applyDelta(choice.Delta.Reasoning, choice.Delta.ReasoningContent, choice.Delta.Content,
		choice.Delta.ToolCalls, choice.Delta.Images)
}

// PushText feeds plain generated text, as produced by local runtimes.
func (r *Reducer) PushText(text string) []types.Event {
	return r.extractor.Feed(text)
}

// PushReasoning feeds reasoning a runtime reported in a dedicated field.
// Like a reasoning delta field, it turns inline marker detection off for the
// rest of the stream.
func (r *Reducer) PushReasoning(text string) []types.Event {
	return r.applyDelta(&text, nil, nil, nil, nil)
}

// PushToolCall records a complete tool call as its own entry.
func (r *Reducer) PushToolCall(call types.ToolCall) {
	idx := r.signaled
	r.signaled++
	r.tools.Add(&idx, call.ID, call.Name, call.Arguments)
}

// Finish flushes held text and emits the finalized tool calls followed by
// the terminal event.
func (r *Reducer) Finish() []types.Event {
	out := r.extractor.Flush()
	calls := r.tools.Finalize()
	for _, call := range calls {
		out = append(out, types.ToolEvent(call))
	}
	return append(out, types.FinishEvent(finishReason(r.finish, len(calls) > 0)))
}

func (r *Reducer) applyDelta(reasoningField, reasoningContent, content *string, toolCalls []types.ToolCallDelta, images []types.ChatImage) []types.Event {
	var out []types.Event

	structured := firstNonEmpty(reasoningField, reasoningContent)
	if structured != "" {
		if !r.extractor.Disabled() {
			out = append(out, r.extractor.Disable()...)
		}
		out = append(out, types.ReasoningEvent(structured))
	}
	if content != nil {
		out = append(out, r.extractor.Feed(*content)...)
	}
	for _, tc := range toolCalls {
		r.tools.Add(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
	}
	for _, img := range images {
		decoded, ok := ParseDataURL(img.ImageURL.URL)
		if !ok {
			slog.Debug("completions.image_skipped", "url_len", len(img.ImageURL.URL))
			continue
		}
		out = append(out, types.ImageEvent(decoded))
	}
	return out
}

func (r *Reducer) report(err error) {
	if r.onError != nil {
		r.onError(err)
	}
}

func firstNonEmpty(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func finishReason(reported string, hasTools bool) string {
	switch reported {
	case "":
		if hasTools {
			return types.FinishToolCalls
		}
		return types.FinishStop
	case "function_call":
		return types.FinishToolCalls
	}
	return reported
}
