package pipeline

import (
	"context"
	"errors"
	"io"
	"iter"
	"log/slog"

	"github.com/n0madic/go-chatkit/internal/limits"
	"github.com/n0madic/go-chatkit/internal/normalize"
	"github.com/n0madic/go-chatkit/internal/session"
	"github.com/n0madic/go-chatkit/internal/sse"
	"github.com/n0madic/go-chatkit/internal/stream"
	"github.com/n0madic/go-chatkit/internal/types"
	"github.com/n0madic/go-chatkit/internal/upstream"
)

// Service sends canonical requests to one backend family and returns
// canonical events.
type Service interface {
	// Send performs a non-streaming request and aggregates the result.
	Send(ctx context.Context, req types.Request) (types.Response, error)
	// Stream returns once the backend accepted the request. The iterator
	// owns the response body and releases it when iteration ends, so the
	// caller must range over it.
	Stream(ctx context.Context, req types.Request) (iter.Seq[types.Event], error)
	// LastError returns the most recent error as text, or "".
	LastError() string
	// RateLimits returns the last rate-limit snapshot, or nil.
	RateLimits() *limits.StoredSnapshot
}

// Options configures a Service.
type Options struct {
	// Client is the transport for remote backends and Ollama.
	Client *upstream.Client
	// Model is used when a request leaves Model empty.
	Model string
	// Sanitizer defaults to normalize.New with the default placeholder.
	Sanitizer normalize.RequestSanitizer
	// StartMarker and EndMarker delimit inline reasoning in text content.
	StartMarker string
	EndMarker   string
	// ReasoningEffort and ReasoningSummary are defaults a request can override.
	ReasoningEffort  string
	ReasoningSummary string
	// PromptCache derives prompt_cache_key for Responses backends; nil disables it.
	PromptCache *session.Cache
	// Path overrides the endpoint relative to the client's base URL.
	Path string
	// OnError receives decode, read and backend errors seen while streaming.
	// Decode errors wrap stream.ErrMalformedPayload.
	OnError func(error)
}

// reducer is the per-stream state shared by both remote families.
type reducer interface {
	Push(data []byte) []types.Event
	Finish() []types.Event
}

type base struct {
	name      string
	opts      Options
	sanitizer normalize.RequestSanitizer
	errs      ErrorCollector
}

func newBase(name string, opts Options) *base {
	san := opts.Sanitizer
	if san == nil {
		san = normalize.New(normalize.Config{})
	}
	return &base{name: name, opts: opts, sanitizer: san}
}

func (b *base) LastError() string {
	return b.errs.Get()
}

func (b *base) RateLimits() *limits.StoredSnapshot {
	if b.opts.Client == nil {
		return nil
	}
	return b.opts.Client.RateLimits()
}

// prepare runs the request through the assistant merge and the sanitizer
// and fills in the default model.
func (b *base) prepare(req types.Request) types.Request {
	req = req.Clone()
	req.Messages = normalize.MergeAdjacentAssistantMessages(req.Messages)
	req = b.sanitizer.Sanitize(req)
	if req.Model == "" {
		req.Model = b.opts.Model
	}
	slog.Debug("pipeline.request",
		"backend", b.name,
		"model", req.Model,
		"messages", len(req.Messages),
		"tools", len(req.Tools),
	)
	return req
}

// report records an error seen mid-stream and forwards it to OnError.
func (b *base) report(err error) {
	var berr *upstream.BackendError
	if errors.As(err, &berr) {
		slog.Warn("pipeline.backend_error", "backend", b.name, "err", err)
	}
	b.errs.Set(err)
	if b.opts.OnError != nil {
		b.opts.OnError(err)
	}
}

// fail records a call-level error and returns it.
func (b *base) fail(err error) error {
	b.errs.Set(err)
	return err
}

// checkToolArguments logs tool calls whose arguments do not satisfy the
// tool's schema. It never changes the events.
func (b *base) checkToolArguments(tools []types.ToolDefinition, calls []types.ToolCall) {
	if len(tools) == 0 || len(calls) == 0 {
		return
	}
	for _, err := range normalize.CheckToolArguments(tools, calls) {
		slog.Warn("pipeline.tool_arguments_invalid", "backend", b.name, "err", err)
	}
}

// remote is a Service speaking to an HTTP backend that streams SSE.
type remote struct {
	*base
	path       string
	optional   []string
	// typed payloads take their type from the SSE event name when missing.
	typed      bool
	build      func(req types.Request, stream bool) ([]byte, error)
	adjust     func(req types.Request) types.Request
	newReducer func(onError func(error)) reducer
	decode     func(body []byte) ([]types.Event, error)
}

func (s *remote) request(ctx context.Context, req types.Request, streaming bool) (types.Request, io.ReadCloser, error) {
	prepared := s.adjust(s.prepare(req))
	body, err := s.build(prepared, streaming)
	if err != nil {
		return prepared, nil, s.fail(err)
	}
	resp, err := s.opts.Client.PostWithFallback(ctx, s.path, body, streaming, s.optional...)
	if err != nil {
		return prepared, nil, s.fail(err)
	}
	return prepared, resp.Body, nil
}

func (s *remote) Send(ctx context.Context, req types.Request) (types.Response, error) {
	s.errs.Clear()
	prepared, body, err := s.request(ctx, req, false)
	if err != nil {
		return types.Response{}, err
	}
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		return types.Response{}, s.fail(&upstream.TransportError{Err: err})
	}
	events, err := s.decode(raw)
	if err != nil {
		return types.Response{}, s.fail(err)
	}
	resp := stream.Aggregate(events)
	s.checkToolArguments(prepared.Tools, resp.ToolCalls)
	return resp, nil
}

func (s *remote) Stream(ctx context.Context, req types.Request) (iter.Seq[types.Event], error) {
	s.errs.Clear()
	prepared, body, err := s.request(ctx, req, true)
	if err != nil {
		return nil, err
	}
	return func(yield func(types.Event) bool) {
		defer body.Close()
		r := s.newReducer(s.report)
		var calls []types.ToolCall
		emit := func(events []types.Event) bool {
			for _, ev := range events {
				if ev.Kind == types.EventTool && ev.Tool != nil {
					calls = append(calls, *ev.Tool)
				}
				if !yield(ev) {
					return false
				}
			}
			return true
		}

		reader := sse.NewReader(body)
		for {
			rec, err := reader.Next()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					slog.Warn("pipeline.stream_read_failed", "backend", s.name, "err", err)
					s.report(err)
				}
				break
			}
			data := []byte(rec.Data)
			if s.typed {
				data = rec.TypedData()
			}
			if !emit(r.Push(data)) {
				return
			}
		}
		if !emit(r.Finish()) {
			return
		}
		s.checkToolArguments(prepared.Tools, calls)
	}, nil
}
