package pipeline

import (
	"context"
	"errors"
	"iter"
	"log/slog"

	"github.com/n0madic/go-chatkit/internal/completions"
	"github.com/n0madic/go-chatkit/internal/runtime"
	"github.com/n0madic/go-chatkit/internal/stream"
	"github.com/n0madic/go-chatkit/internal/types"
)

// local is a Service backed by a local runtime. Generated text runs through
// the same reducer as Completions content, so inline reasoning markers are
// split out the same way until the runtime reports reasoning separately.
type local struct {
	*base
	rt runtime.Runtime
}

// NewLocal returns a Service generating with rt.
func NewLocal(rt runtime.Runtime, opts Options) Service {
	return &local{base: newBase("local", opts), rt: rt}
}

func (s *local) Send(ctx context.Context, req types.Request) (types.Response, error) {
	seq, errp, err := s.generate(ctx, req)
	if err != nil {
		return types.Response{}, err
	}
	resp := stream.Collect(seq)
	return resp, *errp
}

func (s *local) Stream(ctx context.Context, req types.Request) (iter.Seq[types.Event], error) {
	seq, _, err := s.generate(ctx, req)
	return seq, err
}

// generate starts the runtime and pulls its first fragment so that startup
// failures are returned directly. The returned error pointer is set when
// generation fails later.
func (s *local) generate(ctx context.Context, req types.Request) (iter.Seq[types.Event], *error, error) {
	s.errs.Clear()
	prepared := s.prepare(req)
	next, stop := iter.Pull2(s.rt.Generate(ctx, runtime.PromptFromRequest(prepared)))

	firstText, firstErr, more := next()
	if more && firstErr != nil && !isSignal(firstErr) {
		stop()
		return nil, nil, s.fail(firstErr)
	}

	var genErr error
	seq := func(yield func(types.Event) bool) {
		defer stop()
		r := completions.NewReducer(completions.Options{
			StartMarker: s.opts.StartMarker,
			EndMarker:   s.opts.EndMarker,
		})
		strip := runtime.NewTerminatorStripper(nil)
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

		text, err, ok := firstText, firstErr, more
		for ok {
			var call *runtime.ToolInvocation
			var thought *runtime.Thinking
			switch {
			case errors.As(err, &call):
				r.PushToolCall(call.Call)
			case errors.As(err, &thought):
				if !emit(r.PushReasoning(thought.Text)) {
					return
				}
			case err != nil:
				slog.Warn("pipeline.generate_failed", "backend", s.name, "err", err)
				genErr = err
				s.report(err)
				ok = false
				continue
			default:
				if !emit(r.PushText(strip.Feed(text))) {
					return
				}
			}
			text, err, ok = next()
		}
		if !emit(r.PushText(strip.Flush())) {
			return
		}
		if !emit(r.Finish()) {
			return
		}
		s.checkToolArguments(prepared.Tools, calls)
	}
	return seq, &genErr, nil
}

func isSignal(err error) bool {
	var inv *runtime.ToolInvocation
	var thought *runtime.Thinking
	return errors.As(err, &inv) || errors.As(err, &thought)
}
