package responses

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/n0madic/go-chatkit/internal/stream"
	"github.com/n0madic/go-chatkit/internal/types"
	"github.com/n0madic/go-chatkit/internal/upstream"
)

// ErrInvalidEvent is reported for payloads that are not valid JSON.
var ErrInvalidEvent = fmt.Errorf("responses: invalid event payload: %w", stream.ErrMalformedPayload)

// Options configures a Machine.
type Options struct {
	// OnError receives decode errors and backend-reported failures.
	OnError func(error)
}

type modality string

const (
	modText      modality = "text"
	modReasoning modality = "reasoning"
	modSummary   modality = "summary"
	modRefusal   modality = "refusal"
)

type streamKey struct {
	item string
	mod  modality
}

// ItemMeta is what output_item.added reports about an item.
type ItemMeta struct {
	Type        string
	Role        string
	OutputIndex int64
}

// Machine is the per-stream state of a Responses event stream. It emits
// exactly one terminal event unless the backend reported a failure.
type Machine struct {
	tools        stream.ItemCollector
	items        map[string]ItemMeta
	streamed     map[streamKey]bool
	emittedTools map[string]bool
	terminated   bool
	ignoredTools int
	onError      func(error)
}

// NewMachine returns a Machine for one stream.
func NewMachine(opts Options) *Machine {
	return &Machine{
		items:        make(map[string]ItemMeta),
		streamed:     make(map[streamKey]bool),
		emittedTools: make(map[string]bool),
		onError:      opts.OnError,
	}
}

// Item returns the metadata recorded for an output item.
func (m *Machine) Item(id string) (ItemMeta, bool) {
	meta, ok := m.items[id]
	return meta, ok
}

// Push consumes one event payload and returns the events it produces.
func (m *Machine) Push(data []byte) []types.Event {
	if !gjson.ValidBytes(data) {
		slog.Warn("responses.decode_failed", "payload_len", len(data))
		m.report(ErrInvalidEvent)
		return nil
	}
	evt := gjson.ParseBytes(data)
	kind := strings.TrimPrefix(evt.Get("type").String(), "response.")
	itemID := evt.Get("item_id").String()

	switch kind {
	case "output_text.delta":
		return m.delta(itemID, modText, types.EventText, evt.Get("delta").String())
	case "output_text.done":
		return m.done(itemID, modText, types.EventText, evt.Get("text").String())
	case "reasoning_text.delta":
		return m.delta(itemID, modReasoning, types.EventReasoning, evt.Get("delta").String())
	case "reasoning_text.done":
		return m.done(itemID, modReasoning, types.EventReasoning, evt.Get("text").String())
	case "reasoning_summary_text.delta":
		return m.delta(itemID, modSummary, types.EventReasoning, evt.Get("delta").String())
	case "reasoning_summary_text.done":
		return m.done(itemID, modSummary, types.EventReasoning, evt.Get("text").String())
	case "refusal.delta":
		return m.delta(itemID, modRefusal, types.EventText, evt.Get("delta").String())
	case "refusal.done":
		out := m.done(itemID, modRefusal, types.EventText, evt.Get("refusal").String())
		return append(out, m.terminal(types.FinishRefusal)...)

	case "function_call_arguments.delta":
		m.tools.Delta(itemID, evt.Get("delta").String())
	case "function_call_arguments.done":
		m.tools.Done(itemID, "", evt.Get("name").String(), evt.Get("arguments").String())

	case "output_item.added":
		item := evt.Get("item")
		id := item.Get("id").String()
		m.items[id] = ItemMeta{
			Type:        item.Get("type").String(),
			Role:        item.Get("role").String(),
			OutputIndex: evt.Get("output_index").Int(),
		}
		switch typ := item.Get("type").String(); {
		case typ == "function_call":
			m.tools.Observe(id, item.Get("call_id").String(), item.Get("name").String(), item.Get("arguments").String())
		case isToolLike(typ):
			m.noteIgnoredTool(kind, typ)
		}
	case "output_item.done":
		item := evt.Get("item")
		switch typ := item.Get("type").String(); {
		case typ == "function_call":
			m.tools.Done(item.Get("id").String(), item.Get("call_id").String(), item.Get("name").String(), item.Get("arguments").String())
		case isToolLike(typ):
			m.noteIgnoredTool(kind, typ)
		}

	case "content_part.added", "content_part.done", "reasoning_summary_part.added", "reasoning_summary_part.done":
		if typ := evt.Get("part.type").String(); isToolLike(typ) {
			m.noteIgnoredTool(kind, typ)
		}

	case "completed":
		return m.terminal(m.pendingReason())
	case "incomplete":
		return m.terminal(types.FinishLength)
	case "failed":
		m.fail(&upstream.BackendError{
			State:   "failed",
			Code:    evt.Get("response.error.code").String(),
			Message: firstString(evt.Get("response.error.message"), evt.Get("response.status_details"), "response failed"),
		})
	case "error":
		m.fail(&upstream.BackendError{
			Code:    firstString(evt.Get("code"), evt.Get("error.code"), ""),
			Message: firstString(evt.Get("message"), evt.Get("error.message"), "stream error"),
		})

	case "":
		if berr := upstream.ExtractBackendError(data); berr != nil {
			m.fail(berr)
		} else {
			slog.Debug("responses.untyped_event_ignored")
		}
	default:
		if isToolLike(kind) {
			m.noteIgnoredTool(kind, kind)
		} else {
			slog.Debug("responses.event_ignored", "type", kind)
		}
	}
	return nil
}

// Close ends the stream. Without a terminal event so far it synthesizes one;
// tool calls not yet emitted are emitted before it.
func (m *Machine) Close() []types.Event {
	if !m.terminated {
		return m.terminal(m.pendingReason())
	}
	return m.flushTools()
}

// IgnoredToolEvents returns how many tool-like events were seen but not
// turned into tool calls.
func (m *Machine) IgnoredToolEvents() int {
	return m.ignoredTools
}

func (m *Machine) delta(itemID string, mod modality, kind types.EventKind, text string) []types.Event {
	m.streamed[streamKey{itemID, mod}] = true
	if text == "" {
		return nil
	}
	return []types.Event{{Kind: kind, Text: text}}
}

func (m *Machine) done(itemID string, mod modality, kind types.EventKind, text string) []types.Event {
	key := streamKey{itemID, mod}
	if m.streamed[key] || text == "" {
		return nil
	}
	m.streamed[key] = true
	return []types.Event{{Kind: kind, Text: text}}
}

func (m *Machine) terminal(reason string) []types.Event {
	if m.terminated {
		return nil
	}
	m.terminated = true
	return append(m.flushTools(), types.FinishEvent(reason))
}

func (m *Machine) flushTools() []types.Event {
	var out []types.Event
	for _, call := range m.tools.Finalize() {
		if m.emittedTools[call.ID] {
			continue
		}
		m.emittedTools[call.ID] = true
		out = append(out, types.ToolEvent(call))
	}
	return out
}

func (m *Machine) pendingReason() string {
	if m.tools.Pending() {
		return types.FinishToolCalls
	}
	return types.FinishStop
}

func (m *Machine) fail(err *upstream.BackendError) {
	m.terminated = true
	slog.Warn("responses.backend_error", "code", err.Code, "message", err.Message)
	m.report(err)
}

func (m *Machine) noteIgnoredTool(event, typ string) {
	m.ignoredTools++
	slog.Debug("responses.tool_content_ignored", "event", event, "type", typ)
}

func (m *Machine) report(err error) {
	if m.onError != nil {
		m.onError(err)
	}
}

func isToolLike(typ string) bool {
	return strings.Contains(typ, "_call") || strings.Contains(typ, "tool.")
}

func firstString(a, b gjson.Result, fallback string) string {
	if s := strings.TrimSpace(a.String()); s != "" {
		return s
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		return s
	}
	return fallback
}
