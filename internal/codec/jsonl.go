package codec

import (
	"encoding/json"
	"io"

	"github.com/n0madic/go-chatkit/internal/types"
)

// jsonEvent is the JSON-lines shape of an event.
type jsonEvent struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	Image        *types.Image    `json:"image,omitempty"`
	Tool         *types.ToolCall `json:"tool,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

type jsonResponse struct {
	Type string `json:"type"`
	types.Response
}

type jsonError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// JSONLEncoder writes one JSON object per line.
type JSONLEncoder struct {
	enc *json.Encoder
}

// NewJSONLEncoder returns an encoder writing to w.
func NewJSONLEncoder(w io.Writer) *JSONLEncoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONLEncoder{enc: enc}
}

func (e *JSONLEncoder) WriteEvent(ev types.Event) error {
	return e.enc.Encode(jsonEvent{
		Type:         ev.Kind.String(),
		Text:         ev.Text,
		Image:        ev.Image,
		Tool:         ev.Tool,
		FinishReason: ev.FinishReason,
	})
}

func (e *JSONLEncoder) WriteResponse(resp types.Response) error {
	return e.enc.Encode(jsonResponse{Type: "response", Response: resp})
}

func (e *JSONLEncoder) WriteError(err error) error {
	return e.enc.Encode(jsonError{Type: "error", Message: err.Error()})
}

func (e *JSONLEncoder) Close() error { return nil }
