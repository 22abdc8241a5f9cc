package runtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/n0madic/go-chatkit/internal/transform"
	"github.com/n0madic/go-chatkit/internal/types"
	"github.com/n0madic/go-chatkit/internal/upstream"
)

// ChatPath is the Ollama chat endpoint relative to the base URL.
const ChatPath = "api/chat"

// Ollama runs prompts against an Ollama-compatible server that streams
// NDJSON chunks. The message.thinking field is raised as *Thinking.
type Ollama struct {
	client *upstream.Client
}

// NewOllama returns a runtime posting through client.
func NewOllama(client *upstream.Client) *Ollama {
	return &Ollama{client: client}
}

func (o *Ollama) Generate(ctx context.Context, p Prompt) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		req := types.Request{
			Model:               p.Model,
			Messages:            p.Messages,
			Tools:               p.Tools,
			Temperature:         p.Temperature,
			MaxCompletionTokens: p.MaxTokens,
		}
		body, err := transform.OllamaBody(req, true)
		if err != nil {
			yield("", err)
			return
		}
		resp, err := o.client.Post(ctx, ChatPath, body, true)
		if err != nil {
			yield("", err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var chunk types.OllamaStreamChunk
			if err := json.Unmarshal(line, &chunk); err != nil {
				slog.Warn("ollama.decode_failed", "err", err, "payload_len", len(line))
				continue
			}
			if chunk.Error != "" {
				yield("", fmt.Errorf("ollama: %s", chunk.Error))
				return
			}

			if chunk.Message.Thinking != "" && !yield("", &Thinking{Text: chunk.Message.Thinking}) {
				return
			}
			if chunk.Message.Content != "" && !yield(chunk.Message.Content, nil) {
				return
			}
			for _, tc := range chunk.Message.ToolCalls {
				if !yield("", &ToolInvocation{Call: toolCall(tc)}) {
					return
				}
			}
			if chunk.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
			yield("", fmt.Errorf("read ollama stream: %w", err))
		}
	}
}

func toolCall(tc types.OllamaToolCall) types.ToolCall {
	args := "{}"
	if tc.Function.Arguments != nil {
		if b, err := json.Marshal(tc.Function.Arguments); err == nil {
			args = string(b)
		}
	}
	return types.ToolCall{
		ID:        "call_" + uuid.NewString(),
		Name:      tc.Function.Name,
		Arguments: args,
	}
}
