package types

import "strings"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType is the kind of a single content part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
	PartAudio PartType = "audio"
)

// ContentPart is one element of multipart message content.
// Only user turns carry image and audio parts; the other roles use text parts.
type ContentPart struct {
	Type        PartType `json:"type"`
	Text        string   `json:"text,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	ImageDetail string   `json:"image_detail,omitempty"`
	AudioData   string   `json:"audio_data,omitempty"`
	AudioFormat string   `json:"audio_format,omitempty"`
}

// TextPart returns a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ImagePart returns an image content part referencing url (http(s) or data URL).
func ImagePart(url, detail string) ContentPart {
	return ContentPart{Type: PartImage, ImageURL: url, ImageDetail: detail}
}

// AudioPart returns an inline audio part with base64 data.
func AudioPart(data, format string) ContentPart {
	return ContentPart{Type: PartAudio, AudioData: data, AudioFormat: format}
}

// Content is either plain text (Parts == nil) or an ordered list of parts.
type Content struct {
	Text  string        `json:"text,omitempty"`
	Parts []ContentPart `json:"parts,omitempty"`
}

// IsParts reports whether the content is in multipart form.
func (c Content) IsParts() bool {
	return c.Parts != nil
}

// Flatten returns the textual content, joining text parts with newlines.
// Non-text parts are skipped.
func (c Content) Flatten() string {
	if c.Parts == nil {
		return c.Text
	}
	texts := make([]string, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p.Type == PartText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (c Content) clone() Content {
	if c.Parts == nil {
		return c
	}
	parts := make([]ContentPart, len(c.Parts))
	copy(parts, c.Parts)
	return Content{Text: c.Text, Parts: parts}
}

// Message is one conversation turn. Role selects which fields are meaningful:
// ToolCalls, Reasoning and ReasoningDetails belong to assistant turns,
// ToolCallID to tool turns.
type Message struct {
	Role             Role              `json:"role"`
	Content          Content           `json:"content"`
	Name             string            `json:"name,omitempty"`
	ToolCalls        []ToolCall        `json:"tool_calls,omitempty"`
	Reasoning        string            `json:"reasoning,omitempty"`
	ReasoningDetails []ReasoningDetail `json:"reasoning_details,omitempty"`
	ToolCallID       string            `json:"tool_call_id,omitempty"`
}

// System returns a system turn with plain text.
func System(text string) Message {
	return Message{Role: RoleSystem, Content: Content{Text: text}}
}

// Developer returns a developer turn with plain text.
func Developer(text string) Message {
	return Message{Role: RoleDeveloper, Content: Content{Text: text}}
}

// User returns a plain-text user turn.
func User(text string) Message {
	return Message{Role: RoleUser, Content: Content{Text: text}}
}

// UserParts returns a multipart user turn.
func UserParts(parts ...ContentPart) Message {
	if parts == nil {
		parts = []ContentPart{}
	}
	return Message{Role: RoleUser, Content: Content{Parts: parts}}
}

// Assistant returns an assistant turn with text only.
func Assistant(text string) Message {
	return Message{Role: RoleAssistant, Content: Content{Text: text}}
}

// AssistantToolCalls returns an assistant turn that issued the given tool calls.
func AssistantToolCalls(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: Content{Text: text}, ToolCalls: calls}
}

// Tool returns a tool-result turn answering the call with the given id.
func Tool(callID, text string) Message {
	return Message{Role: RoleTool, Content: Content{Text: text}, ToolCallID: callID}
}

// IsPlainUserText reports whether m is a user turn carrying plain text.
func (m Message) IsPlainUserText() bool {
	return m.Role == RoleUser && !m.Content.IsParts()
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	out.Content = m.Content.clone()
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	if m.ReasoningDetails != nil {
		out.ReasoningDetails = make([]ReasoningDetail, len(m.ReasoningDetails))
		for i, d := range m.ReasoningDetails {
			out.ReasoningDetails[i] = d.clone()
		}
	}
	return out
}

// ToolCall is a function invocation requested by the model.
// Arguments is opaque JSON text and is never parsed here.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes a function the model may call. Parameters is a
// JSON-schema shaped value tree made of nil, bool, numbers, strings,
// []any and map[string]any.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Strict      *bool          `json:"strict,omitempty"`
}

// IsStrict reports whether the definition explicitly sets strict=true.
func (d ToolDefinition) IsStrict() bool {
	return d.Strict != nil && *d.Strict
}

// ReasoningParam carries the reasoning effort and summary mode.
type ReasoningParam struct {
	Effort  string `json:"effort,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Request is the provider-neutral chat request.
type Request struct {
	Model               string           `json:"model,omitempty"`
	Messages            []Message        `json:"messages"`
	Tools               []ToolDefinition `json:"tools,omitempty"`
	Temperature         *float64         `json:"temperature,omitempty"`
	MaxCompletionTokens *int             `json:"max_completion_tokens,omitempty"`
	Reasoning           *ReasoningParam  `json:"reasoning,omitempty"`
	// ExtraBody is merged into the serialized backend body as-is.
	ExtraBody map[string]any `json:"extra_body,omitempty"`
}

// Clone returns a copy of the request whose message and tool slices can be
// modified without affecting r.
func (r Request) Clone() Request {
	out := r
	if r.Messages != nil {
		out.Messages = make([]Message, len(r.Messages))
		for i, m := range r.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	if r.Tools != nil {
		out.Tools = make([]ToolDefinition, len(r.Tools))
		for i, t := range r.Tools {
			if t.Strict != nil {
				t.Strict = BoolPtr(*t.Strict)
			}
			out.Tools[i] = t
		}
	}
	return out
}
