package reasoning

import (
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
)

var (
	validEfforts   = map[string]bool{"none": true, "minimal": true, "low": true, "medium": true, "high": true, "xhigh": true}
	validSummaries = map[string]bool{"auto": true, "concise": true, "detailed": true, "none": true}
)

// BuildReasoningParam merges configured defaults with per-request overrides.
// It returns nil when neither side asks for reasoning.
func BuildReasoningParam(baseEffort, baseSummary string, overrides *types.ReasoningParam) *types.ReasoningParam {
	effort := strings.ToLower(strings.TrimSpace(baseEffort))
	summary := strings.ToLower(strings.TrimSpace(baseSummary))

	if overrides != nil {
		if e := strings.ToLower(strings.TrimSpace(overrides.Effort)); e != "" && validEfforts[e] {
			effort = e
		}
		if s := strings.ToLower(strings.TrimSpace(overrides.Summary)); s != "" && validSummaries[s] {
			summary = s
		}
	}

	if !validEfforts[effort] {
		effort = ""
	}
	if !validSummaries[summary] {
		summary = ""
	}
	if effort == "" && summary == "" {
		return nil
	}

	r := &types.ReasoningParam{Effort: effort}
	// Backends disable summaries when the field is absent; "none" is rejected.
	if summary != "none" {
		r.Summary = summary
	}
	return r
}

var modelEfforts = []string{"minimal", "low", "medium", "high", "xhigh"}

// ExtractFromModelName infers reasoning overrides from a model name string.
func ExtractFromModelName(model string) *types.ReasoningParam {
	effort, _ := effortSuffix(model)
	if effort == "" {
		return nil
	}
	return &types.ReasoningParam{Effort: effort}
}

// StripEffortSuffix removes a reasoning effort suffix recognized by
// ExtractFromModelName from the model name.
func StripEffortSuffix(model string) string {
	effort, cut := effortSuffix(model)
	if effort == "" {
		return model
	}
	return strings.TrimSpace(strings.TrimSpace(model)[:cut])
}

// effortSuffix returns the effort named at the end of model and the index of
// its separator in the trimmed name.
func effortSuffix(model string) (string, int) {
	name := strings.TrimSpace(model)
	if name == "" {
		return "", 0
	}

	// Colon separator is the Ollama convention (e.g. "gpt-5:high").
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		maybe := strings.TrimSpace(name[idx+1:])
		for _, e := range modelEfforts {
			if strings.EqualFold(maybe, e) {
				return e, idx
			}
		}
	}

	for _, sep := range []string{"-", "_"} {
		for _, e := range modelEfforts {
			suffix := sep + e
			if len(name) > len(suffix) && strings.EqualFold(name[len(name)-len(suffix):], suffix) {
				return e, len(name) - len(suffix)
			}
		}
	}
	return "", 0
}
