package responses

import (
	"errors"
	"strings"
	"testing"

	"github.com/n0madic/go-chatkit/internal/stream"
	"github.com/n0madic/go-chatkit/internal/types"
	"github.com/n0madic/go-chatkit/internal/upstream"
)

func run(payloads ...string) ([]types.Event, []error) {
	var errs []error
	m := NewMachine(Options{OnError: func(err error) { errs = append(errs, err) }})
	var events []types.Event
	for _, p := range payloads {
		events = append(events, m.Push([]byte(p))...)
	}
	events = append(events, m.Close()...)
	return events, errs
}

func summarize(events []types.Event) string {
	parts := make([]string, 0, len(events))
	for _, ev := range events {
		switch ev.Kind {
		case types.EventText, types.EventReasoning:
			parts = append(parts, ev.Kind.String()+":"+ev.Text)
		case types.EventTool:
			parts = append(parts, "tool:"+ev.Tool.Name+"("+ev.Tool.Arguments+")")
		case types.EventFinish:
			parts = append(parts, "finish:"+ev.FinishReason)
		default:
			parts = append(parts, ev.Kind.String())
		}
	}
	return strings.Join(parts, " | ")
}

func TestMachine(t *testing.T) {
	tests := []struct {
		name     string
		payloads []string
		want     string
		wantErrs int
	}{
		{
			name: "delta then done emits text once",
			payloads: []string{
				`{"type":"response.output_item.added","output_index":0,"item":{"id":"msg_1","type":"message","role":"assistant"}}`,
				`{"type":"response.output_text.delta","item_id":"msg_1","delta":"Hel"}`,
				`{"type":"response.output_text.delta","item_id":"msg_1","delta":"lo"}`,
				`{"type":"response.output_text.done","item_id":"msg_1","text":"Hello"}`,
				`{"type":"response.completed","response":{"status":"completed"}}`,
			},
			want: "text:Hel | text:lo | finish:stop",
		},
		{
			name: "done without deltas emits full text",
			payloads: []string{
				`{"type":"response.output_text.done","item_id":"msg_1","text":"Whole"}`,
				`{"type":"response.completed"}`,
			},
			want: "text:Whole | finish:stop",
		},
		{
			name: "reasoning and summary deltas",
			payloads: []string{
				`{"type":"response.reasoning_summary_text.delta","item_id":"rs_1","delta":"sum"}`,
				`{"type":"response.reasoning_summary_text.done","item_id":"rs_1","text":"sum"}`,
				`{"type":"response.reasoning_text.done","item_id":"rs_1","text":"full"}`,
				`{"type":"response.output_text.delta","item_id":"msg_1","delta":"ok"}`,
			},
			want: "reasoning:sum | reasoning:full | text:ok | finish:stop",
		},
		{
			name: "function call reassembly",
			payloads: []string{
				`{"type":"response.output_item.added","output_index":0,"item":{"id":"fc_1","type":"function_call","call_id":"call_1","name":"lookup","arguments":""}}`,
				`{"type":"response.function_call_arguments.delta","item_id":"fc_1","delta":"{\"q\":"}`,
				`{"type":"response.function_call_arguments.delta","item_id":"fc_1","delta":"1}"}`,
				`{"type":"response.function_call_arguments.done","item_id":"fc_1","arguments":"{\"q\":1}"}`,
				`{"type":"response.output_item.done","output_index":0,"item":{"id":"fc_1","type":"function_call","call_id":"call_1","name":"lookup","arguments":"{\"q\":1}"}}`,
				`{"type":"response.completed"}`,
			},
			want: `tool:lookup({"q":1}) | finish:tool_calls`,
		},
		{
			name: "stream without terminal synthesizes one",
			payloads: []string{
				`{"type":"response.function_call_arguments.delta","item_id":"fc_9","delta":"{}"}`,
			},
			want: "tool:({}) | finish:tool_calls",
		},
		{
			name: "incomplete maps to length",
			payloads: []string{
				`{"type":"response.output_text.delta","item_id":"m","delta":"cut"}`,
				`{"type":"response.incomplete","response":{"status":"incomplete"}}`,
				`{"type":"response.completed"}`,
			},
			want: "text:cut | finish:length",
		},
		{
			name: "refusal done without deltas",
			payloads: []string{
				`{"type":"response.refusal.done","item_id":"msg_1","output_index":0,"refusal":"nope"}`,
				`{"type":"response.completed"}`,
			},
			want: "text:nope | finish:refusal",
		},
		{
			name: "refusal deltas are not repeated",
			payloads: []string{
				`{"type":"response.refusal.delta","item_id":"msg_1","delta":"no"}`,
				`{"type":"response.refusal.done","item_id":"msg_1","refusal":"no"}`,
			},
			want: "text:no | finish:refusal",
		},
		{
			name: "failed suppresses terminal",
			payloads: []string{
				`{"type":"response.output_text.delta","item_id":"m","delta":"partial"}`,
				`{"type":"response.failed","response":{"status":"failed","error":{"code":"server_error","message":"boom"}}}`,
			},
			want:     "text:partial",
			wantErrs: 1,
		},
		{
			name: "error event suppresses terminal",
			payloads: []string{
				`{"type":"error","code":"rate_limit","message":"slow down"}`,
			},
			want:     "",
			wantErrs: 1,
		},
		{
			name: "invalid payload is skipped",
			payloads: []string{
				`{"type":"response.output_text.delta","item_id":"m","delta":"a"}`,
				`{broken`,
				`{"type":"response.output_text.delta","item_id":"m","delta":"b"}`,
			},
			want:     "text:a | text:b | finish:stop",
			wantErrs: 1,
		},
		{
			name: "content parts and unknown events ignored",
			payloads: []string{
				`{"type":"response.created","response":{"status":"in_progress"}}`,
				`{"type":"response.content_part.added","item_id":"m","part":{"type":"output_text","text":""}}`,
				`{"type":"response.reasoning_summary_part.added","item_id":"r","part":{"type":"summary_text","text":""}}`,
				`{"type":"response.web_search_call.in_progress","item_id":"ws"}`,
				`{"type":"response.output_text.delta","item_id":"m","delta":"x"}`,
				`{"type":"response.content_part.done","item_id":"m","part":{"type":"output_text","text":"x"}}`,
			},
			want: "text:x | finish:stop",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, errs := run(tt.payloads...)
			if got := summarize(events); got != tt.want {
				t.Fatalf("events = %q, want %q", got, tt.want)
			}
			if len(errs) != tt.wantErrs {
				t.Fatalf("got %d errors (%v), want %d", len(errs), errs, tt.wantErrs)
			}
		})
	}
}

func TestMachineInvalidPayloadIsMalformed(t *testing.T) {
	_, errs := run(`{broken`)
	if len(errs) != 1 || !errors.Is(errs[0], stream.ErrMalformedPayload) {
		t.Fatalf("errs = %v, want one ErrMalformedPayload", errs)
	}
}

func TestMachineTerminalEmittedOnce(t *testing.T) {
	events, _ := run(
		`{"type":"response.output_text.delta","item_id":"m","delta":"a"}`,
		`{"type":"response.completed"}`,
		`{"type":"response.completed"}`,
		`{"type":"response.incomplete"}`,
	)
	finishes := 0
	for _, ev := range events {
		if ev.Kind == types.EventFinish {
			finishes++
		}
	}
	if finishes != 1 {
		t.Fatalf("got %d terminal events, want 1", finishes)
	}
}

func TestMachineOutputItemDoneDefersTerminal(t *testing.T) {
	m := NewMachine(Options{})
	payloads := []string{
		`{"type":"response.output_item.added","item":{"id":"r","type":"reasoning"}}`,
		`{"type":"response.reasoning_summary_text.delta","item_id":"r","delta":"think"}`,
		`{"type":"response.output_item.done","item":{"id":"r","type":"reasoning"}}`,
		`{"type":"response.output_item.added","item":{"id":"m","type":"message","role":"assistant"}}`,
		`{"type":"response.output_text.delta","item_id":"m","delta":"answer"}`,
		`{"type":"response.output_item.done","item":{"id":"m","type":"message"}}`,
	}
	var events []types.Event
	for _, p := range payloads {
		for _, ev := range m.Push([]byte(p)) {
			if ev.Kind == types.EventFinish {
				t.Fatalf("terminal emitted before the stream closed, after %s", p)
			}
			events = append(events, ev)
		}
	}
	events = append(events, m.Close()...)
	if got, want := summarize(events), "reasoning:think | text:answer | finish:stop"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestMachineFailedReportsBackendError(t *testing.T) {
	_, errs := run(`{"type":"response.failed","response":{"error":{"code":"server_error","message":"boom"}}}`)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	var berr *upstream.BackendError
	if !errors.As(errs[0], &berr) {
		t.Fatalf("expected *upstream.BackendError, got %T", errs[0])
	}
	if berr.Message != "boom" || berr.Code != "server_error" {
		t.Fatalf("unexpected error: %+v", berr)
	}
}

func TestMachineTracksItemsAndIgnoredTools(t *testing.T) {
	m := NewMachine(Options{})
	m.Push([]byte(`{"type":"response.output_item.added","output_index":2,"item":{"id":"msg_7","type":"message","role":"assistant"}}`))
	m.Push([]byte(`{"type":"response.output_item.added","output_index":3,"item":{"id":"ws_1","type":"web_search_call"}}`))

	meta, ok := m.Item("msg_7")
	if !ok || meta.Role != "assistant" || meta.OutputIndex != 2 {
		t.Fatalf("unexpected item meta: %+v (ok=%v)", meta, ok)
	}
	if m.IgnoredToolEvents() != 1 {
		t.Fatalf("IgnoredToolEvents() = %d, want 1", m.IgnoredToolEvents())
	}
}
