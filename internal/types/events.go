package types

// EventKind discriminates Event.
type EventKind int

const (
	EventText EventKind = iota
	EventReasoning
	EventImage
	EventTool
	// EventFinish is the terminal event of a stream and carries FinishReason.
	EventFinish
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "text"
	case EventReasoning:
		return "reasoning"
	case EventImage:
		return "image"
	case EventTool:
		return "tool"
	case EventFinish:
		return "finish"
	}
	return "unknown"
}

// Finish reasons reported by EventFinish.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
	FinishRefusal   = "refusal"
)

// Image is inline image output.
type Image struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type,omitempty"`
}

// Event is one unit of normalized output. Kind determines which field is set:
// Text for text and reasoning, Image, Tool, or FinishReason.
type Event struct {
	Kind         EventKind
	Text         string
	Image        *Image
	Tool         *ToolCall
	FinishReason string
}

// TextEvent returns a visible-text event.
func TextEvent(s string) Event { return Event{Kind: EventText, Text: s} }

// ReasoningEvent returns a reasoning-text event.
func ReasoningEvent(s string) Event { return Event{Kind: EventReasoning, Text: s} }

// ImageEvent returns an image event.
func ImageEvent(img Image) Event { return Event{Kind: EventImage, Image: &img} }

// ToolEvent returns a tool-call event.
func ToolEvent(tc ToolCall) Event { return Event{Kind: EventTool, Tool: &tc} }

// FinishEvent returns the terminal event.
func FinishEvent(reason string) Event { return Event{Kind: EventFinish, FinishReason: reason} }

// Response is the fold of a sequence of events.
type Response struct {
	Text         string     `json:"text"`
	Reasoning    string     `json:"reasoning,omitempty"`
	Images       []Image    `json:"images"`
	ToolCalls    []ToolCall `json:"tool_calls"`
	FinishReason string     `json:"finish_reason,omitempty"`
}
