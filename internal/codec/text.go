package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/n0madic/go-chatkit/internal/reasoning"
	"github.com/n0madic/go-chatkit/internal/types"
)

// TextEncoder prints text as it streams. Reasoning is rendered per the
// compat mode, tool calls and images as one-line summaries.
type TextEncoder struct {
	out    io.Writer
	diag   io.Writer
	compat string

	inThink bool
	wrote   bool
	lastNL  bool
}

func (e *TextEncoder) mode() string {
	m := strings.ToLower(strings.TrimSpace(e.compat))
	if m == "" {
		return reasoning.CompatThinkTags
	}
	return m
}

func (e *TextEncoder) write(s string) error {
	if s == "" {
		return nil
	}
	if _, err := io.WriteString(e.out, s); err != nil {
		return err
	}
	e.wrote = true
	e.lastNL = strings.HasSuffix(s, "\n")
	return nil
}

func (e *TextEncoder) closeThink() error {
	if !e.inThink {
		return nil
	}
	e.inThink = false
	return e.write(reasoning.DefaultEndMarker)
}

func (e *TextEncoder) line(s string) error {
	if e.wrote && !e.lastNL {
		if err := e.write("\n"); err != nil {
			return err
		}
	}
	return e.write(s + "\n")
}

func (e *TextEncoder) WriteEvent(ev types.Event) error {
	switch ev.Kind {
	case types.EventReasoning:
		switch e.mode() {
		case reasoning.CompatHidden:
			return nil
		case reasoning.CompatSeparate:
			_, err := io.WriteString(e.diag, ev.Text)
			return err
		}
		if !e.inThink {
			e.inThink = true
			if err := e.write(reasoning.DefaultStartMarker); err != nil {
				return err
			}
		}
		return e.write(ev.Text)
	case types.EventText:
		if err := e.closeThink(); err != nil {
			return err
		}
		return e.write(ev.Text)
	case types.EventImage:
		if err := e.closeThink(); err != nil {
			return err
		}
		return e.line(describeImage(ev.Image))
	case types.EventTool:
		if err := e.closeThink(); err != nil {
			return err
		}
		return e.line(describeTool(ev.Tool))
	case types.EventFinish:
		if err := e.closeThink(); err != nil {
			return err
		}
		if ev.FinishReason != "" && ev.FinishReason != types.FinishStop && ev.FinishReason != types.FinishToolCalls {
			_, err := fmt.Fprintf(e.diag, "[finish: %s]\n", ev.FinishReason)
			return err
		}
	}
	return nil
}

func (e *TextEncoder) WriteResponse(resp types.Response) error {
	content, separate := reasoning.Render(resp, e.mode())
	if separate != "" {
		if _, err := fmt.Fprintln(e.diag, separate); err != nil {
			return err
		}
	}
	if err := e.write(content); err != nil {
		return err
	}
	for i := range resp.Images {
		if err := e.line(describeImage(&resp.Images[i])); err != nil {
			return err
		}
	}
	for i := range resp.ToolCalls {
		if err := e.line(describeTool(&resp.ToolCalls[i])); err != nil {
			return err
		}
	}
	return e.Close()
}

func (e *TextEncoder) WriteError(err error) error {
	_, werr := fmt.Fprintf(e.diag, "error: %v\n", err)
	return werr
}

// Close ends an open reasoning block and terminates the last line.
func (e *TextEncoder) Close() error {
	if err := e.closeThink(); err != nil {
		return err
	}
	if e.wrote && !e.lastNL {
		return e.write("\n")
	}
	return nil
}

func describeImage(img *types.Image) string {
	if img == nil {
		return "[image]"
	}
	mime := img.MimeType
	if mime == "" {
		mime = "unknown type"
	}
	return fmt.Sprintf("[image: %s, %d bytes]", mime, len(img.Data))
}

func describeTool(tc *types.ToolCall) string {
	if tc == nil {
		return "[tool call]"
	}
	return fmt.Sprintf("[tool call %s] %s(%s)", tc.ID, tc.Name, tc.Arguments)
}
