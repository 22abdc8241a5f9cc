package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/n0madic/go-chatkit/internal/codec"
	"github.com/n0madic/go-chatkit/internal/config"
	"github.com/n0madic/go-chatkit/internal/normalize"
	"github.com/n0madic/go-chatkit/internal/pipeline"
	"github.com/n0madic/go-chatkit/internal/runtime"
	"github.com/n0madic/go-chatkit/internal/session"
	"github.com/n0madic/go-chatkit/internal/stream"
	"github.com/n0madic/go-chatkit/internal/types"
	"github.com/n0madic/go-chatkit/internal/upstream"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// persistentFlags maps config keys to their command-line flags.
var persistentFlags = map[string]string{
	config.KeyBackend:          "backend",
	config.KeyBaseURL:          "base-url",
	config.KeyAPIKey:           "api-key",
	config.KeyModel:            "model",
	config.KeyTimeout:          "timeout",
	config.KeyPlaceholder:      "placeholder",
	config.KeyReasoningEffort:  "reasoning-effort",
	config.KeyReasoningSummary: "reasoning-summary",
	config.KeyReasoningCompat:  "reasoning-compat",
	config.KeyVerbose:          "verbose",
	config.KeyDebug:            "debug",
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "chatkit",
		Short:         "Talk to chat-completion backends through one canonical format",
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			return config.ReadFile(v, cfgFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.String("backend", "", "backend family (completions|responses|ollama)")
	pf.String("base-url", "", "backend base URL")
	pf.String("api-key", "", "API key sent as a bearer token")
	pf.String("model", "", "default model")
	pf.Duration("timeout", 0, "request timeout")
	pf.String("placeholder", "", "text used to fill empty turns")
	pf.String("reasoning-effort", "", "reasoning effort (minimal|low|medium|high|xhigh)")
	pf.String("reasoning-summary", "", "reasoning summary (auto|concise|detailed|none)")
	pf.String("reasoning-compat", "", "reasoning display (think-tags|hidden|separate)")
	pf.Bool("verbose", false, "log requests and responses")
	pf.Bool("debug", false, "dump raw HTTP traffic to stderr")
	for key, name := range persistentFlags {
		_ = v.BindPFlag(key, pf.Lookup(name))
	}

	root.AddCommand(newChatCmd(v), newSanitizeCmd(v), newInfoCmd(v))
	return root
}

// loadConfig resolves the configuration and installs the default logger.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg, nil
}

func newChatCmd(v *viper.Viper) *cobra.Command {
	var (
		system    string
		streaming bool
		format    string
		images    []string
		usage     bool
	)
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a prompt and print the reply",
		Long:  "Send a prompt and print the reply. Without arguments, or with \"-\", the prompt is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			prompt, err := readPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req, err := buildRequest(cfg.Model, system, prompt, images)
			if err != nil {
				return err
			}
			enc, err := codec.New(format, cmd.OutOrStdout(), cmd.ErrOrStderr(), codec.Opts{ReasoningCompat: cfg.ReasoningCompat})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var failures streamFailures
			svc := newService(cfg, failures.report)
			if err := runChat(ctx, svc, req, streaming, enc, &failures); err != nil {
				_ = enc.WriteError(err)
				return err
			}
			if usage {
				printUsageLimits(cmd.ErrOrStderr(), svc.RateLimits())
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&system, "system", "s", "", "system prompt")
	f.BoolVar(&streaming, "stream", true, "stream the reply as it arrives")
	f.StringVarP(&format, "format", "f", codec.FormatText, "output format (text|jsonl)")
	f.StringArrayVar(&images, "image", nil, "attach an image file or URL (repeatable)")
	f.BoolVar(&usage, "usage", false, "print rate-limit usage after the reply")
	return cmd
}

// newService wires the backend selected by cfg.
func newService(cfg *config.Config, onError func(error)) pipeline.Service {
	client := upstream.NewClient(upstream.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
		Headers: map[string]string{"User-Agent": config.UserAgent()},
		Verbose: cfg.Verbose,
		Debug:   cfg.Debug,
	})
	opts := pipeline.Options{
		Client:           client,
		Model:            cfg.Model,
		Sanitizer:        normalize.New(normalize.Config{Placeholder: cfg.Placeholder}),
		StartMarker:      cfg.ThinkStart,
		EndMarker:        cfg.ThinkEnd,
		ReasoningEffort:  cfg.ReasoningEffort,
		ReasoningSummary: cfg.ReasoningSummary,
		OnError:          onError,
	}
	if cfg.PromptCache {
		opts.PromptCache = session.NewCache(0)
	}
	switch cfg.Backend {
	case config.BackendResponses:
		return pipeline.NewResponses(opts)
	case config.BackendOllama:
		return pipeline.NewLocal(runtime.NewOllama(client), opts)
	default:
		return pipeline.NewCompletions(opts)
	}
}

// streamFailures sorts errors reported while streaming. Skipped payloads are
// warnings; anything else fails the command once the stream ends.
type streamFailures struct {
	first error
}

func (f *streamFailures) report(err error) {
	if errors.Is(err, stream.ErrMalformedPayload) {
		slog.Warn("chat.payload_skipped", "error", err)
		return
	}
	slog.Warn("chat.stream_error", "error", err)
	if f.first == nil {
		f.first = err
	}
}

func runChat(ctx context.Context, svc pipeline.Service, req types.Request, streaming bool, enc codec.Encoder, failures *streamFailures) error {
	if !streaming {
		resp, err := svc.Send(ctx, req)
		if err != nil {
			return err
		}
		return enc.WriteResponse(resp)
	}

	events, err := svc.Stream(ctx, req)
	if err != nil {
		return err
	}
	for ev := range events {
		if err := enc.WriteEvent(ev); err != nil {
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}
	if failures.first != nil {
		return fmt.Errorf("stream ended with error: %w", failures.first)
	}
	return ctx.Err()
}

func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return prompt, nil
}

func buildRequest(model, system, prompt string, images []string) (types.Request, error) {
	req := types.Request{Model: model}
	if system != "" {
		req.Messages = append(req.Messages, types.Message{Role: types.RoleSystem, Content: types.Content{Text: system}})
	}
	user := types.Message{Role: types.RoleUser, Content: types.Content{Text: prompt}}
	if len(images) > 0 {
		parts := []types.ContentPart{types.TextPart(prompt)}
		for _, ref := range images {
			url, err := imageURL(ref)
			if err != nil {
				return types.Request{}, err
			}
			parts = append(parts, types.ImagePart(url, ""))
		}
		user.Content = types.Content{Parts: parts}
	}
	req.Messages = append(req.Messages, user)
	return req, nil
}

// imageURL passes remote and data URLs through and inlines local files as
// base64 data URLs.
func imageURL(ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "data:") {
		return ref, nil
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", filepath.Base(ref), err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", filepath.Base(ref), mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func newSanitizeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <request.json>",
		Short: "Print a canonical request after normalization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			var data []byte
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read request: %w", err)
			}
			var req types.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("decode request: %w", err)
			}
			req.Messages = normalize.MergeAdjacentAssistantMessages(req.Messages)
			req = normalize.New(normalize.Config{Placeholder: cfg.Placeholder}).Sanitize(req)
			return writeJSON(cmd.OutOrStdout(), req)
		},
	}
}

func newInfoCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				config.Config
				UserAgent string `json:"user_agent"`
			}{cfg.Redacted(), config.UserAgent()})
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
