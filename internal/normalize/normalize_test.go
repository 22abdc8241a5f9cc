package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-chatkit/internal/types"
)

func TestSanitizeLeavesPlainUserRequestUnchanged(t *testing.T) {
	req := types.Request{Messages: []types.Message{types.User("hi")}}

	got := New(Config{}).Sanitize(req)

	assert.Equal(t, req, got)
}

func TestSanitizeAddsToolResultAndTrailingUser(t *testing.T) {
	req := types.Request{Messages: []types.Message{
		types.User("x"),
		types.AssistantToolCalls("", types.ToolCall{ID: "t1", Name: "lookup"}),
	}}

	got := New(Config{}).Sanitize(req)

	require.Len(t, got.Messages, 4)
	assert.Equal(t, types.RoleUser, got.Messages[0].Role)
	assert.Equal(t, types.RoleAssistant, got.Messages[1].Role)
	assert.Equal(t, types.Tool("t1", "."), got.Messages[2])
	assert.Equal(t, types.User("."), got.Messages[3])
	assert.Len(t, req.Messages, 2, "input must not be modified")
}

func TestSanitizeCustomPlaceholder(t *testing.T) {
	req := types.Request{Messages: []types.Message{
		types.AssistantToolCalls("", types.ToolCall{ID: "t1"}),
	}}

	got := New(Config{Placeholder: "(no output)"}).Sanitize(req)

	require.Len(t, got.Messages, 3)
	assert.Equal(t, "(no output)", got.Messages[1].Content.Text)
	assert.Equal(t, "(no output)", got.Messages[2].Content.Text)
}

func TestSanitizeEmptyTranscript(t *testing.T) {
	got := New(Config{}).Sanitize(types.Request{})

	assert.Equal(t, []types.Message{types.User(".")}, got.Messages)
}

func TestMergeSystemMessages(t *testing.T) {
	named := types.System("")
	named.Name = "ops"
	secondNamed := types.System("  rule two ")
	secondNamed.Name = "other"

	tests := []struct {
		name string
		in   []types.Message
		want []types.Message
	}{
		{
			name: "no system turns",
			in:   []types.Message{types.User("a"), types.Assistant("b")},
			want: []types.Message{types.User("a"), types.Assistant("b")},
		},
		{
			name: "scattered turns collapse to head",
			in: []types.Message{
				types.User("a"),
				types.System(" one "),
				types.Assistant("b"),
				{Role: types.RoleSystem, Content: types.Content{Parts: []types.ContentPart{types.TextPart("two"), types.TextPart("three")}}},
			},
			want: []types.Message{types.System("one\n\ntwo\nthree"), types.User("a"), types.Assistant("b")},
		},
		{
			name: "all empty removed",
			in:   []types.Message{types.System("  "), types.User("hi"), types.System("")},
			want: []types.Message{types.User("hi")},
		},
		{
			name: "first non-empty name kept",
			in:   []types.Message{named, secondNamed, types.User("u")},
			want: []types.Message{{Role: types.RoleSystem, Content: types.Content{Text: "rule two"}, Name: "ops"}, types.User("u")},
		},
		{
			name: "developer turns untouched",
			in:   []types.Message{types.Developer("dev"), types.System("sys")},
			want: []types.Message{types.System("sys"), types.Developer("dev")},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeSystemMessages(types.Request{Messages: tt.in}, Config{})
			assert.Equal(t, tt.want, got.Messages)
		})
	}
}

func TestEnsureToolResponses(t *testing.T) {
	cfg := Config{Placeholder: "."}
	tests := []struct {
		name string
		in   []types.Message
		want []types.Message
	}{
		{
			name: "answered call untouched",
			in: []types.Message{
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}),
				types.Tool("a", "42"),
			},
			want: []types.Message{
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}),
				types.Tool("a", "42"),
			},
		},
		{
			name: "missing answers inserted after issuer in call order",
			in: []types.Message{
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}, types.ToolCall{ID: "b"}),
				types.Tool("b", "ok"),
				types.User("next"),
			},
			want: []types.Message{
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}, types.ToolCall{ID: "b"}),
				types.Tool("a", "."),
				types.Tool("b", "ok"),
				types.User("next"),
			},
		},
		{
			name: "answer before the call does not count",
			in: []types.Message{
				types.Tool("a", "early"),
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}),
			},
			want: []types.Message{
				types.Tool("a", "early"),
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}),
				types.Tool("a", "."),
			},
		},
		{
			name: "repeated id filled once",
			in: []types.Message{
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}),
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}),
			},
			want: []types.Message{
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}),
				types.Tool("a", "."),
				types.AssistantToolCalls("", types.ToolCall{ID: "a"}),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnsureToolResponses(types.Request{Messages: tt.in}, cfg)
			assert.Equal(t, tt.want, got.Messages)
		})
	}
}

func TestEnsureTrailingUserText(t *testing.T) {
	cfg := Config{Placeholder: "."}
	tests := []struct {
		name    string
		in      []types.Message
		wantAdd bool
	}{
		{"ends on user text", []types.Message{types.User("hi")}, false},
		{"ends on assistant", []types.Message{types.User("hi"), types.Assistant("yo")}, true},
		{"ends on multipart user", []types.Message{types.UserParts(types.TextPart("hi"))}, true},
		{"ends on tool", []types.Message{types.Tool("t", "r")}, true},
		{"empty", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnsureTrailingUserText(types.Request{Messages: tt.in}, cfg)
			wantLen := len(tt.in)
			if tt.wantAdd {
				wantLen++
			}
			require.Len(t, got.Messages, wantLen)
			assert.True(t, got.Messages[len(got.Messages)-1].IsPlainUserText())
		})
	}
}

func TestNormalizeToolStrict(t *testing.T) {
	mixed := types.Request{Tools: []types.ToolDefinition{
		{Name: "a"},
		{Name: "b", Strict: types.BoolPtr(true)},
		{Name: "c", Strict: types.BoolPtr(false)},
	}}
	got := NormalizeToolStrict(mixed, Config{})
	for _, tool := range got.Tools {
		assert.True(t, tool.IsStrict(), "tool %s should be strict", tool.Name)
	}

	lax := types.Request{Tools: []types.ToolDefinition{{Name: "a"}, {Name: "b", Strict: types.BoolPtr(false)}}}
	got = NormalizeToolStrict(lax, Config{})
	assert.Nil(t, got.Tools[0].Strict)
	assert.False(t, got.Tools[1].IsStrict())
}

func TestSanitizeIsIdempotent(t *testing.T) {
	requests := map[string]types.Request{
		"empty": {},
		"system only": {Messages: []types.Message{types.System(" a "), types.System("b")}},
		"tool chain": {
			Messages: []types.Message{
				types.System("sys"),
				types.User("q"),
				types.AssistantToolCalls("thinking", types.ToolCall{ID: "1"}, types.ToolCall{ID: "2"}),
				types.Tool("2", "done"),
				types.AssistantToolCalls("", types.ToolCall{ID: "1"}),
			},
			Tools: []types.ToolDefinition{{Name: "f", Strict: types.BoolPtr(true)}, {Name: "g"}},
		},
		"multipart tail": {Messages: []types.Message{types.UserParts(types.ImagePart("http://img", "low"))}},
	}
	s := New(Config{})
	for name, req := range requests {
		t.Run(name, func(t *testing.T) {
			once := s.Sanitize(req)
			twice := s.Sanitize(once)
			assert.Equal(t, once, twice)
		})
	}
}

func TestNopSanitizer(t *testing.T) {
	req := types.Request{Messages: []types.Message{types.Assistant("x")}}
	var s RequestSanitizer = Nop{}
	assert.Equal(t, req, s.Sanitize(req))
}

func TestMergeAdjacentAssistantMessages(t *testing.T) {
	in := []types.Message{
		types.User("u"),
		{Role: types.RoleAssistant, Content: types.Content{Text: "a"}, Reasoning: "r1",
			ReasoningDetails: []types.ReasoningDetail{{ID: "d", Text: "x"}}},
		{Role: types.RoleAssistant, Content: types.Content{Text: ""}, Reasoning: "r2",
			ToolCalls:        []types.ToolCall{{ID: "t1", Name: "f"}},
			ReasoningDetails: []types.ReasoningDetail{{ID: "d", Text: "y"}}},
		types.Assistant("b"),
		types.User("v"),
		types.Assistant("c"),
	}

	got := MergeAdjacentAssistantMessages(in)

	require.Len(t, got, 4)
	merged := got[1]
	assert.Equal(t, "a\nb", merged.Content.Text)
	assert.Equal(t, "r1r2", merged.Reasoning)
	assert.Equal(t, []types.ToolCall{{ID: "t1", Name: "f"}}, merged.ToolCalls)
	require.Len(t, merged.ReasoningDetails, 1)
	assert.Equal(t, "xy", merged.ReasoningDetails[0].Text)
	assert.Equal(t, "c", got[3].Content.Text)
}

func TestInstructions(t *testing.T) {
	msgs := []types.Message{types.System("a"), types.User("u"), types.Developer(" b "), types.System(" ")}
	instructions, rest := Instructions(msgs)
	assert.Equal(t, "a\n\nb", instructions)
	assert.Equal(t, []types.Message{types.User("u")}, rest)
}
