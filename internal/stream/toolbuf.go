package stream

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/n0madic/go-chatkit/internal/types"
)

// MaxToolArgBufSize is the upper bound (in bytes) for buffered function-call
// argument fragments per tool call.
const MaxToolArgBufSize = 1 << 20 // 1 MB

type toolEntry struct {
	key  string
	id   string
	name string
	args strings.Builder
	done bool
}

func (e *toolEntry) appendArgs(fragment string) {
	if fragment == "" {
		return
	}
	if e.args.Len()+len(fragment) > MaxToolArgBufSize {
		slog.Warn("tool.args_limit_exceeded", "key", e.key, "buf_len", e.args.Len(), "delta_len", len(fragment))
		return
	}
	e.args.WriteString(fragment)
}

func (e *toolEntry) empty() bool {
	return e.name == "" && e.args.Len() == 0
}

func (e *toolEntry) toolCall() types.ToolCall {
	id := strings.TrimSpace(e.id)
	if id == "" {
		id = "call_" + uuid.NewString()
		e.id = id
	}
	return types.ToolCall{ID: id, Name: e.name, Arguments: e.args.String()}
}

func finalizeEntries(entries []*toolEntry) []types.ToolCall {
	var out []types.ToolCall
	for _, e := range entries {
		if e.empty() {
			continue
		}
		e.done = true
		out = append(out, e.toolCall())
	}
	return out
}

// IndexCollector reassembles tool calls streamed as positional fragments.
// A fragment for a new index finalizes the call in progress. Fragments
// without an index continue the current call.
type IndexCollector struct {
	entries []*toolEntry
	current *toolEntry
	index   int
}

// Add records one fragment.
func (c *IndexCollector) Add(index *int, id, name, args string) {
	idx := c.index
	if index != nil {
		idx = *index
	}
	if c.current != nil && idx != c.index {
		c.current.done = true
		c.current = nil
	}
	if c.current == nil {
		c.current = &toolEntry{key: strconv.Itoa(idx)}
		c.entries = append(c.entries, c.current)
	}
	c.index = idx

	if id = strings.TrimSpace(id); id != "" {
		c.current.id = id
	}
	c.current.name += name
	c.current.appendArgs(args)
}

// Pending reports whether any call has been started.
func (c *IndexCollector) Pending() bool {
	for _, e := range c.entries {
		if !e.empty() {
			return true
		}
	}
	return false
}

// Finalize returns every call in first-seen order, including one that was
// still receiving fragments.
func (c *IndexCollector) Finalize() []types.ToolCall {
	c.current = nil
	return finalizeEntries(c.entries)
}

// ItemCollector reassembles tool calls keyed by a persistent item id. The
// emitted call id is the backend call id when known, the item id otherwise.
type ItemCollector struct {
	entries []*toolEntry
	byItem  map[string]*toolEntry
}

func (c *ItemCollector) entry(itemID string) *toolEntry {
	if c.byItem == nil {
		c.byItem = make(map[string]*toolEntry)
	}
	if e, ok := c.byItem[itemID]; ok {
		return e
	}
	e := &toolEntry{key: itemID, id: itemID}
	c.byItem[itemID] = e
	c.entries = append(c.entries, e)
	return e
}

// Observe registers a function_call item announced before its arguments.
func (c *ItemCollector) Observe(itemID, callID, name, args string) {
	e := c.entry(strings.TrimSpace(itemID))
	if callID = strings.TrimSpace(callID); callID != "" {
		e.id = callID
	}
	if e.name == "" {
		e.name = name
	}
	if e.args.Len() == 0 {
		e.appendArgs(args)
	}
}

// Delta appends an argument fragment.
func (c *ItemCollector) Delta(itemID, fragment string) {
	e := c.entry(strings.TrimSpace(itemID))
	if e.done {
		slog.Debug("tool.delta_after_done", "item_id", itemID)
		return
	}
	e.appendArgs(fragment)
}

// Done finalizes the entry. Non-empty args replace the accumulated
// fragments since a done event carries the complete argument text.
func (c *ItemCollector) Done(itemID, callID, name, args string) {
	e := c.entry(strings.TrimSpace(itemID))
	if callID = strings.TrimSpace(callID); callID != "" {
		e.id = callID
	}
	if name != "" {
		e.name = name
	}
	if args != "" && len(args) <= MaxToolArgBufSize {
		e.args.Reset()
		e.args.WriteString(args)
	}
	e.done = true
}

// Pending reports whether any call has been started.
func (c *ItemCollector) Pending() bool {
	for _, e := range c.entries {
		if !e.empty() {
			return true
		}
	}
	return false
}

// Finalize returns every call in first-seen order, including entries that
// never received a done event.
func (c *ItemCollector) Finalize() []types.ToolCall {
	return finalizeEntries(c.entries)
}
