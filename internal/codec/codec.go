package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
)

// Output formats accepted by New.
const (
	FormatText  = "text"
	FormatJSONL = "jsonl"
)

// Opts carries rendering settings to encoders.
type Opts struct {
	// ReasoningCompat selects how the text encoder shows reasoning:
	// think-tags, hidden or separate.
	ReasoningCompat string
}

// Encoder writes canonical output to a terminal or a pipe.
type Encoder interface {
	// WriteEvent writes one streamed event.
	WriteEvent(ev types.Event) error
	// WriteResponse writes an aggregated non-streaming result.
	WriteResponse(resp types.Response) error
	// WriteError reports a failed call.
	WriteError(err error) error
	// Close finishes any open output block.
	Close() error
}

// New returns an encoder for format writing results to out. Diagnostics and
// separated reasoning go to diag.
func New(format string, out, diag io.Writer, opts Opts) (Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return &TextEncoder{out: out, diag: diag, compat: opts.ReasoningCompat}, nil
	case FormatJSONL:
		return NewJSONLEncoder(out), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", format, FormatText, FormatJSONL)
	}
}
