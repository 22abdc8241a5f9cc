package normalize

import (
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
)

// MergeSystemMessages replaces all system turns with one leading system turn
// carrying their trimmed text joined by blank lines. The first non-empty name
// wins. When every system turn is empty, system turns are dropped.
func MergeSystemMessages(req types.Request, _ Config) types.Request {
	var (
		segments []string
		name     string
		found    bool
	)
	rest := make([]types.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role != types.RoleSystem {
			rest = append(rest, m)
			continue
		}
		found = true
		segments = append(segments, m.Content.Flatten())
		if name == "" {
			name = m.Name
		}
	}
	if !found {
		return req
	}

	combined := joinNonEmpty("\n\n", segments...)
	if combined == "" {
		req.Messages = rest
		return req
	}
	merged := types.System(combined)
	merged.Name = name
	req.Messages = append([]types.Message{merged}, rest...)
	return req
}

// Instructions returns the system and developer text of msgs joined by blank
// lines, and the remaining messages.
func Instructions(msgs []types.Message) (string, []types.Message) {
	var parts []string
	rest := make([]types.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == types.RoleSystem || m.Role == types.RoleDeveloper {
			parts = append(parts, m.Content.Flatten())
			continue
		}
		rest = append(rest, m)
	}
	return joinNonEmpty("\n\n", parts...), rest
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(p))
	}
	return strings.Join(out, sep)
}
