package stream

import (
	"reflect"
	"slices"
	"testing"

	"github.com/n0madic/go-chatkit/internal/types"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name   string
		events []types.Event
		want   types.Response
	}{
		{
			name:   "empty",
			events: nil,
			want:   types.Response{Images: []types.Image{}, ToolCalls: []types.ToolCall{}},
		},
		{
			name:   "text and reasoning interleaved",
			events: []types.Event{types.TextEvent("a"), types.ReasoningEvent("r"), types.TextEvent("b")},
			want:   types.Response{Text: "ab", Reasoning: "r", Images: []types.Image{}, ToolCalls: []types.ToolCall{}},
		},
		{
			name: "images tools and finish",
			events: []types.Event{
				types.ImageEvent(types.Image{Data: []byte{1}, MimeType: "image/png"}),
				types.ToolEvent(types.ToolCall{ID: "1", Name: "f", Arguments: "{}"}),
				types.ImageEvent(types.Image{Data: []byte{2}}),
				types.FinishEvent(types.FinishToolCalls),
				types.ToolEvent(types.ToolCall{ID: "2", Name: "g"}),
			},
			want: types.Response{
				Images:       []types.Image{{Data: []byte{1}, MimeType: "image/png"}, {Data: []byte{2}}},
				ToolCalls:    []types.ToolCall{{ID: "1", Name: "f", Arguments: "{}"}, {ID: "2", Name: "g"}},
				FinishReason: types.FinishToolCalls,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.events)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Aggregate() = %+v, want %+v", got, tt.want)
			}
			if collected := Collect(slices.Values(tt.events)); !reflect.DeepEqual(collected, tt.want) {
				t.Fatalf("Collect() = %+v, want %+v", collected, tt.want)
			}
		})
	}
}
