package types

import "testing"

func TestContentFlatten(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		want    string
	}{
		{"plain", Content{Text: "hello"}, "hello"},
		{"parts", Content{Parts: []ContentPart{TextPart("a"), ImagePart("http://x/y.png", ""), TextPart("b")}}, "a\nb"},
		{"empty parts", Content{Parts: []ContentPart{}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.content.Flatten(); got != tt.want {
				t.Fatalf("Flatten() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsPlainUserText(t *testing.T) {
	if !User("hi").IsPlainUserText() {
		t.Fatal("User(text) should be plain user text")
	}
	if UserParts(TextPart("hi")).IsPlainUserText() {
		t.Fatal("multipart user turn is not plain text")
	}
	if Assistant("hi").IsPlainUserText() {
		t.Fatal("assistant turn is not plain user text")
	}
}

func TestRequestCloneIsIndependent(t *testing.T) {
	req := Request{
		Messages: []Message{AssistantToolCalls("", ToolCall{ID: "t1", Name: "f"})},
		Tools:    []ToolDefinition{{Name: "f", Strict: BoolPtr(false)}},
	}
	clone := req.Clone()
	clone.Messages[0].ToolCalls[0].ID = "changed"
	*clone.Tools[0].Strict = true

	if req.Messages[0].ToolCalls[0].ID != "t1" {
		t.Fatalf("original tool call id mutated: %q", req.Messages[0].ToolCalls[0].ID)
	}
	if *req.Tools[0].Strict {
		t.Fatal("original strict flag mutated")
	}
}
