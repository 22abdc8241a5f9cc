package normalize

import (
	"log/slog"

	"github.com/n0madic/go-chatkit/internal/types"
)

// DefaultPlaceholder is the text used for synthesized tool results and
// trailing user turns when Config.Placeholder is empty.
const DefaultPlaceholder = "."

// RequestSanitizer rewrites a request into a shape every backend accepts.
type RequestSanitizer interface {
	Sanitize(req types.Request) types.Request
}

// Config holds sanitizer settings.
type Config struct {
	Placeholder string
}

// Rule is a single rewrite step. Rules receive a request they own and may
// modify it in place.
type Rule struct {
	Name  string
	Apply func(req types.Request, cfg Config) types.Request
}

// DefaultRules is the rule order used by New.
var DefaultRules = []Rule{
	{Name: "merge_system", Apply: MergeSystemMessages},
	{Name: "ensure_tool_responses", Apply: EnsureToolResponses},
	{Name: "ensure_trailing_user", Apply: EnsureTrailingUserText},
	{Name: "normalize_tool_strict", Apply: NormalizeToolStrict},
}

// Sanitizer applies an ordered list of rules. It is safe for concurrent use.
type Sanitizer struct {
	cfg   Config
	rules []Rule
}

// New returns a Sanitizer running DefaultRules.
func New(cfg Config) *Sanitizer {
	return NewWithRules(cfg, DefaultRules...)
}

// NewWithRules returns a Sanitizer running the given rules in order.
func NewWithRules(cfg Config, rules ...Rule) *Sanitizer {
	if cfg.Placeholder == "" {
		cfg.Placeholder = DefaultPlaceholder
	}
	return &Sanitizer{cfg: cfg, rules: rules}
}

// Sanitize returns a sanitized copy of req. The input is never modified.
func (s *Sanitizer) Sanitize(req types.Request) types.Request {
	out := req.Clone()
	for _, rule := range s.rules {
		before := len(out.Messages)
		out = rule.Apply(out, s.cfg)
		if after := len(out.Messages); after != before {
			slog.Debug("sanitize.rule", "rule", rule.Name, "messages_before", before, "messages_after", after)
		}
	}
	return out
}

// Nop is a sanitizer that returns the request unchanged.
type Nop struct{}

// Sanitize implements RequestSanitizer.
func (Nop) Sanitize(req types.Request) types.Request {
	return req
}
