package normalize

import (
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
)

// EnsureToolResponses inserts a placeholder tool turn right after the first
// assistant turn issuing a call that no later tool turn answers.
func EnsureToolResponses(req types.Request, cfg Config) types.Request {
	firstIssue := make(map[string]int)
	for i, m := range req.Messages {
		if m.Role != types.RoleAssistant {
			continue
		}
		for _, call := range m.ToolCalls {
			if _, ok := firstIssue[call.ID]; !ok {
				firstIssue[call.ID] = i
			}
		}
	}
	if len(firstIssue) == 0 {
		return req
	}
	answered := make(map[string]bool)
	for i, m := range req.Messages {
		if m.Role != types.RoleTool {
			continue
		}
		if idx, ok := firstIssue[m.ToolCallID]; ok && i > idx {
			answered[m.ToolCallID] = true
		}
	}

	out := make([]types.Message, 0, len(req.Messages))
	changed := false
	for _, m := range req.Messages {
		out = append(out, m)
		if m.Role != types.RoleAssistant {
			continue
		}
		for _, call := range m.ToolCalls {
			if answered[call.ID] {
				continue
			}
			answered[call.ID] = true
			out = append(out, types.Tool(call.ID, cfg.Placeholder))
			changed = true
		}
	}
	if changed {
		req.Messages = out
	}
	return req
}

// EnsureTrailingUserText appends a placeholder user turn unless the
// transcript already ends with a plain-text user turn.
func EnsureTrailingUserText(req types.Request, cfg Config) types.Request {
	if n := len(req.Messages); n > 0 && req.Messages[n-1].IsPlainUserText() {
		return req
	}
	req.Messages = append(req.Messages, types.User(cfg.Placeholder))
	return req
}

// MergeAdjacentAssistantMessages collapses runs of consecutive assistant
// turns into one turn. Text is joined with newlines, tool calls and reasoning
// are concatenated and reasoning details are merged by continuation.
func MergeAdjacentAssistantMessages(msgs []types.Message) []types.Message {
	out := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		n := len(out)
		if m.Role != types.RoleAssistant || n == 0 || out[n-1].Role != types.RoleAssistant {
			out = append(out, m.Clone())
			continue
		}
		prev := out[n-1]
		merged := types.Message{
			Role:      types.RoleAssistant,
			Content:   types.Content{Text: joinLines(prev.Content.Flatten(), m.Content.Flatten())},
			Name:      prev.Name,
			Reasoning: prev.Reasoning + m.Reasoning,
		}
		if merged.Name == "" {
			merged.Name = m.Name
		}
		if len(prev.ToolCalls)+len(m.ToolCalls) > 0 {
			merged.ToolCalls = append(append([]types.ToolCall{}, prev.ToolCalls...), m.ToolCalls...)
		}
		if len(prev.ReasoningDetails)+len(m.ReasoningDetails) > 0 {
			merged.ReasoningDetails = types.MergeReasoningDetails(prev.ReasoningDetails, m.ReasoningDetails...)
		}
		out[n-1] = merged
	}
	return out
}

func joinLines(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
