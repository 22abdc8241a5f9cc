package types

import "testing"

func TestReasoningDetailContinues(t *testing.T) {
	tests := []struct {
		name string
		a, b ReasoningDetail
		want bool
	}{
		{"same id", ReasoningDetail{ID: "r1", Type: "a"}, ReasoningDetail{ID: "r1", Type: "b"}, true},
		{"different id", ReasoningDetail{ID: "r1"}, ReasoningDetail{ID: "r2"}, false},
		{"one id missing", ReasoningDetail{ID: "r1", Index: IntPtr(0)}, ReasoningDetail{Index: IntPtr(0)}, false},
		{"index type format", ReasoningDetail{Index: IntPtr(1), Type: "text", Format: "f"}, ReasoningDetail{Index: IntPtr(1), Type: "text", Format: "f"}, true},
		{"index differs", ReasoningDetail{Index: IntPtr(1), Type: "text"}, ReasoningDetail{Index: IntPtr(2), Type: "text"}, false},
		{"format differs", ReasoningDetail{Index: IntPtr(1), Format: "a"}, ReasoningDetail{Index: IntPtr(1), Format: "b"}, false},
		{"no index", ReasoningDetail{Type: "text"}, ReasoningDetail{Type: "text"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Continues(tt.b); got != tt.want {
				t.Fatalf("Continues() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReasoningDetailMerge(t *testing.T) {
	a := ReasoningDetail{ID: "r1", Type: "reasoning.text", Text: "Hello ", Format: "f1"}
	b := ReasoningDetail{ID: "r1", Text: "world", Format: "f2", Data: "sig"}

	got := a.Merge(b)
	if got.Text != "Hello world" {
		t.Fatalf("Text = %q", got.Text)
	}
	if got.Type != "reasoning.text" {
		t.Fatalf("Type = %q, want previous non-empty value", got.Type)
	}
	if got.Format != "f2" || got.Data != "sig" {
		t.Fatalf("Format/Data = %q/%q, want latest values", got.Format, got.Data)
	}
}

func TestMergeReasoningDetails(t *testing.T) {
	list := []ReasoningDetail{{ID: "a", Text: "1"}, {ID: "b", Text: "x"}}
	got := MergeReasoningDetails(list,
		ReasoningDetail{ID: "a", Text: "2"},
		ReasoningDetail{ID: "c", Text: "new"},
	)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Text != "12" || got[1].Text != "x" || got[2].Text != "new" {
		t.Fatalf("unexpected merge result: %+v", got)
	}
	if list[0].Text != "1" {
		t.Fatal("input list must not be modified")
	}
}
