package reasoning

import (
	"strings"
	"unicode"

	"github.com/n0madic/go-chatkit/internal/types"
)

// Default inline reasoning sentinels.
const (
	DefaultStartMarker = "<think>"
	DefaultEndMarker   = "</think>"
)

// Extractor splits a fragmented text stream into visible text and inline
// reasoning delimited by start/end markers. Whitespace adjacent to a marker is
// dropped. A trailing run that could still become a marker, together with the
// whitespace before it, is held until more input or Flush.
//
// An Extractor serves a single stream and is not safe for concurrent use.
type Extractor struct {
	start    string
	end      string
	inside   bool
	buf      string
	trimLead bool
	disabled bool
}

// NewExtractor returns an Extractor for the given markers. Empty markers fall
// back to <think> and </think>.
func NewExtractor(start, end string) *Extractor {
	if start == "" {
		start = DefaultStartMarker
	}
	if end == "" {
		end = DefaultEndMarker
	}
	return &Extractor{start: start, end: end}
}

// Inside reports whether the stream is currently within a reasoning span.
func (x *Extractor) Inside() bool {
	return x.inside
}

// Disabled reports whether marker detection was turned off.
func (x *Extractor) Disabled() bool {
	return x.disabled
}

// Disable turns marker detection off for the rest of the stream. Held input is
// flushed and returned; later fragments pass through as visible text.
func (x *Extractor) Disable() []types.Event {
	if x.disabled {
		return nil
	}
	out := x.Flush()
	x.disabled = true
	return out
}

// Feed consumes the next fragment and returns the events it completes.
func (x *Extractor) Feed(fragment string) []types.Event {
	if fragment == "" {
		return nil
	}
	if x.disabled {
		return []types.Event{types.TextEvent(fragment)}
	}
	x.buf += fragment

	var out []types.Event
	for {
		if x.inside {
			idx := strings.Index(x.buf, x.end)
			if idx < 0 {
				keep := holdBack(x.buf, x.end)
				out = x.emit(out, types.EventReasoning, x.buf[:len(x.buf)-keep])
				x.buf = x.buf[len(x.buf)-keep:]
				return out
			}
			out = x.emit(out, types.EventReasoning, strings.TrimRightFunc(x.buf[:idx], unicode.IsSpace))
			x.buf = x.buf[idx+len(x.end):]
			x.inside = false
			x.trimLead = true
			continue
		}

		idx := strings.Index(x.buf, x.start)
		if idx < 0 {
			keep := holdBack(x.buf, x.start)
			out = x.emit(out, types.EventText, x.buf[:len(x.buf)-keep])
			x.buf = x.buf[len(x.buf)-keep:]
			return out
		}
		out = x.emit(out, types.EventText, strings.TrimRightFunc(x.buf[:idx], unicode.IsSpace))
		x.buf = x.buf[idx+len(x.start):]
		x.inside = true
		x.trimLead = true
	}
}

// Flush emits whatever is held at end of stream and resets the state.
// Held text inside a reasoning span is emitted as reasoning. Outside a span,
// stray markers are stripped and the rest is emitted as visible text.
func (x *Extractor) Flush() []types.Event {
	if x.disabled {
		return nil
	}
	rest := x.buf
	kind := types.EventReasoning
	if !x.inside {
		kind = types.EventText
		rest = strings.ReplaceAll(rest, x.start, "")
		rest = strings.ReplaceAll(rest, x.end, "")
	}
	out := x.emit(nil, kind, rest)
	x.buf = ""
	x.inside = false
	x.trimLead = false
	return out
}

func (x *Extractor) emit(out []types.Event, kind types.EventKind, s string) []types.Event {
	if x.trimLead {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return out
		}
		x.trimLead = false
	}
	if s == "" {
		return out
	}
	return append(out, types.Event{Kind: kind, Text: s})
}

// holdBack returns how many trailing bytes of buf must wait for more input:
// the longest proper prefix of marker that buf ends with, plus any whitespace
// in front of it.
func holdBack(buf, marker string) int {
	n := len(marker) - 1
	if len(buf) < n {
		n = len(buf)
	}
	for ; n > 0; n-- {
		if strings.HasSuffix(buf, marker[:n]) {
			break
		}
	}
	rest := strings.TrimRightFunc(buf[:len(buf)-n], unicode.IsSpace)
	return len(buf) - len(rest)
}
