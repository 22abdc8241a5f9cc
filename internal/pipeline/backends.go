package pipeline

import (
	"github.com/n0madic/go-chatkit/internal/completions"
	"github.com/n0madic/go-chatkit/internal/reasoning"
	"github.com/n0madic/go-chatkit/internal/responses"
	"github.com/n0madic/go-chatkit/internal/transform"
	"github.com/n0madic/go-chatkit/internal/types"
)

// Default endpoints relative to the client's base URL.
const (
	CompletionsPath = "chat/completions"
	ResponsesPath   = "responses"
)

// NewCompletions returns a Service for Chat Completions backends.
func NewCompletions(opts Options) Service {
	s := &remote{
		base:     newBase("completions", opts),
		path:     pathOr(opts.Path, CompletionsPath),
		optional: []string{"reasoning_effort"},
	}
	copts := completions.Options{StartMarker: opts.StartMarker, EndMarker: opts.EndMarker}
	s.adjust = func(req types.Request) types.Request {
		req.Reasoning = reasoning.BuildReasoningParam(opts.ReasoningEffort, "", req.Reasoning)
		return req
	}
	s.build = func(req types.Request, stream bool) ([]byte, error) {
		return transform.CompletionsBody(req, transform.BodyOptions{Stream: stream})
	}
	s.newReducer = func(onError func(error)) reducer {
		o := copts
		o.OnError = onError
		return completions.NewReducer(o)
	}
	s.decode = func(body []byte) ([]types.Event, error) {
		return completions.DecodeResponse(body, copts)
	}
	return s
}

// NewResponses returns a Service for Responses backends.
func NewResponses(opts Options) Service {
	s := &remote{
		base:     newBase("responses", opts),
		path:     pathOr(opts.Path, ResponsesPath),
		optional: []string{"prompt_cache_key", "reasoning"},
		typed:    true,
	}
	s.adjust = func(req types.Request) types.Request {
		if req.Reasoning == nil {
			if fromName := reasoning.ExtractFromModelName(req.Model); fromName != nil {
				req.Reasoning = fromName
				req.Model = reasoning.StripEffortSuffix(req.Model)
			}
		}
		req.Reasoning = reasoning.BuildReasoningParam(opts.ReasoningEffort, opts.ReasoningSummary, req.Reasoning)
		return req
	}
	s.build = func(req types.Request, stream bool) ([]byte, error) {
		bo := transform.BodyOptions{Stream: stream}
		if opts.PromptCache != nil {
			bo.PromptCacheKey = opts.PromptCache.Key(req.Messages)
		}
		return transform.ResponsesBody(req, bo)
	}
	s.newReducer = func(onError func(error)) reducer {
		return machineReducer{responses.NewMachine(responses.Options{OnError: onError})}
	}
	s.decode = responses.DecodeResponse
	return s
}

// machineReducer adapts a Responses machine to the reducer shape.
type machineReducer struct {
	*responses.Machine
}

func (m machineReducer) Finish() []types.Event {
	return m.Close()
}

func pathOr(path, fallback string) string {
	if path != "" {
		return path
	}
	return fallback
}
