package stream

import (
	"iter"
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
)

// Aggregate folds events into a Response. Text and reasoning are
// concatenated in order; images and tool calls keep arrival order.
func Aggregate(events []types.Event) types.Response {
	a := newAggregator()
	for _, ev := range events {
		a.add(ev)
	}
	return a.response()
}

// Collect drains seq and folds it like Aggregate.
func Collect(seq iter.Seq[types.Event]) types.Response {
	a := newAggregator()
	for ev := range seq {
		a.add(ev)
	}
	return a.response()
}

type aggregator struct {
	text      strings.Builder
	reasoning strings.Builder
	resp      types.Response
}

func newAggregator() *aggregator {
	return &aggregator{resp: types.Response{Images: []types.Image{}, ToolCalls: []types.ToolCall{}}}
}

func (a *aggregator) add(ev types.Event) {
	switch ev.Kind {
	case types.EventText:
		a.text.WriteString(ev.Text)
	case types.EventReasoning:
		a.reasoning.WriteString(ev.Text)
	case types.EventImage:
		if ev.Image != nil {
			a.resp.Images = append(a.resp.Images, *ev.Image)
		}
	case types.EventTool:
		if ev.Tool != nil {
			a.resp.ToolCalls = append(a.resp.ToolCalls, *ev.Tool)
		}
	case types.EventFinish:
		a.resp.FinishReason = ev.FinishReason
	}
}

func (a *aggregator) response() types.Response {
	out := a.resp
	out.Text = a.text.String()
	out.Reasoning = a.reasoning.String()
	return out
}
