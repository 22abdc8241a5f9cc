package runtime

import (
	"context"
	"iter"
	"strings"

	"github.com/n0madic/go-chatkit/internal/types"
)

// Prompt is what a local runtime generates from.
type Prompt struct {
	Model       string
	Messages    []types.Message
	Tools       []types.ToolDefinition
	Temperature *float64
	MaxTokens   *int
}

// PromptFromRequest copies the fields a local runtime understands.
func PromptFromRequest(req types.Request) Prompt {
	return Prompt{
		Model:       req.Model,
		Messages:    req.Messages,
		Tools:       req.Tools,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxCompletionTokens,
	}
}

// Runtime generates text locally. Generated fragments are yielded in order;
// a *ToolInvocation error carries a tool call the model asked for and a
// *Thinking error carries reasoning the runtime reports apart from its text.
// Generation may continue after either. Any other error ends generation.
type Runtime interface {
	Generate(ctx context.Context, p Prompt) iter.Seq2[string, error]
}

// ToolInvocation is the signal a runtime raises when the model invokes a
// tool instead of answering.
type ToolInvocation struct {
	Call types.ToolCall
}

func (e *ToolInvocation) Error() string {
	return "tool invocation captured: " + e.Call.Name
}

// Thinking is the signal a runtime raises for reasoning text delivered in a
// dedicated field rather than inline with the answer.
type Thinking struct {
	Text string
}

func (e *Thinking) Error() string {
	return "reasoning fragment captured"
}

// Terminators are end-of-turn tokens some local models leak into their text.
var Terminators = []string{
	"<|im_end|>",
	"<|end|>",
	"<|eot_id|>",
	"<|endoftext|>",
	"<end_of_turn>",
	"</s>",
}

// TerminatorStripper removes terminator tokens from a fragmented text
// stream, holding back any tail that could be the start of one.
type TerminatorStripper struct {
	tokens []string
	held   string
}

// NewTerminatorStripper returns a stripper for tokens; nil selects
// Terminators.
func NewTerminatorStripper(tokens []string) *TerminatorStripper {
	if tokens == nil {
		tokens = Terminators
	}
	return &TerminatorStripper{tokens: tokens}
}

// Feed returns the text of fragment that is safe to emit.
func (s *TerminatorStripper) Feed(fragment string) string {
	buf := s.held + fragment
	for _, tok := range s.tokens {
		buf = strings.ReplaceAll(buf, tok, "")
	}
	keep := 0
	for _, tok := range s.tokens {
		for n := len(tok) - 1; n > keep; n-- {
			if strings.HasSuffix(buf, tok[:n]) {
				keep = n
				break
			}
		}
	}
	s.held = buf[len(buf)-keep:]
	return buf[:len(buf)-keep]
}

// Flush returns whatever was held back. A partial token at end of stream is
// ordinary text.
func (s *TerminatorStripper) Flush() string {
	out := s.held
	s.held = ""
	return out
}
