package upstream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/sjson"
)

// IsUnsupportedParameterError reports whether an error body says the
// backend does not accept param.
func IsUnsupportedParameterError(rawBody []byte, param string) bool {
	msg := strings.ToLower(ExtractUpstreamErrorMessage(rawBody))
	if msg == "" {
		return false
	}
	if !strings.Contains(msg, "unsupported parameter") && !strings.Contains(msg, "unrecognized request argument") &&
		!strings.Contains(msg, "unknown parameter") {
		return false
	}
	return strings.Contains(msg, strings.ToLower(strings.TrimSpace(param)))
}

// PostWithFallback posts body and, when a 400 names one of the optional
// fields as unsupported, strips that field and tries again. Each field is
// removed at most once.
func (c *Client) PostWithFallback(ctx context.Context, path string, body []byte, stream bool, optional ...string) (*http.Response, error) {
	removed := make(map[string]bool, len(optional))
	for {
		resp, err := c.Post(ctx, path, body, stream)
		if err == nil {
			return resp, nil
		}
		var te *TransportError
		if !errors.As(err, &te) || te.StatusCode != http.StatusBadRequest {
			return nil, err
		}
		field := ""
		for _, name := range optional {
			if !removed[name] && IsUnsupportedParameterError(te.Body, name) {
				field = name
				break
			}
		}
		if field == "" {
			return nil, err
		}
		next, delErr := sjson.DeleteBytes(body, field)
		if delErr != nil {
			return nil, err
		}
		slog.Warn("upstream.parameter_rejected", "param", field)
		removed[field] = true
		body = next
	}
}
