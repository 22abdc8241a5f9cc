package reasoning

import (
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
)

// Compat modes accepted by Render.
const (
	CompatThinkTags = "think-tags"
	CompatHidden    = "hidden"
	CompatSeparate  = "separate"
)

// Render folds reasoning into the visible content according to compat.
// think-tags prefixes the content with a <think> block, hidden drops the
// reasoning and separate returns it alongside the content.
func Render(resp types.Response, compat string) (content, reasoningText string) {
	compat = strings.ToLower(strings.TrimSpace(compat))
	if compat == "" {
		compat = CompatThinkTags
	}

	switch compat {
	case CompatHidden:
		return resp.Text, ""
	case CompatSeparate:
		return resp.Text, resp.Reasoning
	default:
		if resp.Reasoning == "" {
			return resp.Text, ""
		}
		return DefaultStartMarker + resp.Reasoning + DefaultEndMarker + resp.Text, ""
	}
}
