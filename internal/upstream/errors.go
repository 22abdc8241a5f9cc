package upstream

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// TransportError is a failed HTTP exchange: either the request could not be
// completed (Err is set) or the backend answered with an error status.
type TransportError struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return "upstream request failed: " + e.Err.Error()
	}
	return FormatUpstreamErrorWithHeaders(e.StatusCode, e.Body, e.Headers)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// BackendError is an error reported inside a payload the transport delivered
// successfully.
type BackendError struct {
	Status   int
	State    string
	Code     string
	Message  string
	Metadata map[string]any
}

func (e *BackendError) Error() string {
	var b strings.Builder
	b.WriteString("backend error: ")
	b.WriteString(e.Message)
	var details []string
	if e.Code != "" {
		details = append(details, "code "+e.Code)
	}
	if e.Status != 0 {
		details = append(details, fmt.Sprintf("status %d", e.Status))
	} else if e.State != "" {
		details = append(details, "status "+e.State)
	}
	if len(details) > 0 {
		b.WriteString(" (" + strings.Join(details, ", ") + ")")
	}
	return b.String()
}

var nonErrorStates = map[string]bool{
	"succeeded":   true,
	"completed":   true,
	"success":     true,
	"incomplete":  true,
	"in_progress": true,
	"queued":      true,
}

// ExtractBackendError inspects a JSON payload for status-like fields that
// signal failure. It returns nil when the payload looks successful or is not
// a JSON object.
func ExtractBackendError(payload []byte) *BackendError {
	if !gjson.ValidBytes(payload) {
		return nil
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil
	}

	var out *BackendError
	status := root.Get("status")
	switch status.Type {
	case gjson.Number:
		if code := int(status.Int()); code >= 400 && code <= 599 {
			out = &BackendError{Status: code}
		}
	case gjson.String:
		if s := strings.ToLower(strings.TrimSpace(status.String())); s != "" && !nonErrorStates[s] {
			out = &BackendError{State: s}
		}
	}

	errField := root.Get("error")
	switch {
	case errField.IsObject():
		if errField.Get("message").Exists() || errField.Get("code").Exists() || errField.Get("metadata").Exists() {
			if out == nil {
				out = &BackendError{}
			}
			out.Code = errField.Get("code").String()
			if md, ok := errField.Get("metadata").Value().(map[string]any); ok {
				out.Metadata = md
			}
			out.Message = findMessage(errField)
		}
	case errField.Type == gjson.String && strings.TrimSpace(errField.String()) != "":
		if out == nil {
			out = &BackendError{}
		}
		out.Message = strings.TrimSpace(errField.String())
	}

	if out == nil {
		return nil
	}
	if out.Message == "" {
		out.Message = findMessage(root)
	}
	if out.Message == "" {
		out.Message = compactBodyPreview(payload, 280)
	}
	return out
}

// findMessage searches the tree breadth-first for a non-empty "message"
// string, then falls back to other common description keys at the top level.
func findMessage(root gjson.Result) string {
	queue := []gjson.Result{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if node.IsObject() {
			if m := node.Get("message"); m.Type == gjson.String && strings.TrimSpace(m.String()) != "" {
				return strings.TrimSpace(m.String())
			}
		}
		node.ForEach(func(_, value gjson.Result) bool {
			if value.IsObject() || value.IsArray() {
				queue = append(queue, value)
			}
			return true
		})
	}
	for _, key := range []string{"detail", "error_description", "title", "reason"} {
		if v := root.Get(key); v.Type == gjson.String && strings.TrimSpace(v.String()) != "" {
			return strings.TrimSpace(v.String())
		}
	}
	return ""
}

// FormatUpstreamError formats an error from the upstream response.
func FormatUpstreamError(statusCode int, rawBody []byte) string {
	status := fmt.Sprintf("%d", statusCode)
	if text := http.StatusText(statusCode); text != "" {
		status = fmt.Sprintf("%d %s", statusCode, text)
	}
	if msg := ExtractUpstreamErrorMessage(rawBody); msg != "" {
		return fmt.Sprintf("Upstream returned HTTP %s: %s", status, msg)
	}
	if preview := compactBodyPreview(rawBody, 280); preview != "" {
		return fmt.Sprintf("Upstream returned HTTP %s with unparsed body: %s", status, preview)
	}
	return fmt.Sprintf("Upstream returned HTTP %s with empty error body", status)
}

// FormatUpstreamErrorWithHeaders includes request ID headers in the error.
func FormatUpstreamErrorWithHeaders(statusCode int, rawBody []byte, headers http.Header) string {
	msg := FormatUpstreamError(statusCode, rawBody)
	reqID := extractUpstreamRequestID(headers)
	if reqID == "" {
		return msg
	}
	return fmt.Sprintf("%s (request_id: %s)", msg, reqID)
}

// ExtractUpstreamErrorMessage extracts the error message from an upstream error body.
func ExtractUpstreamErrorMessage(rawBody []byte) string {
	if !gjson.ValidBytes(rawBody) {
		return ""
	}
	root := gjson.ParseBytes(rawBody)
	if errField := root.Get("error"); errField.Type == gjson.String {
		return strings.TrimSpace(errField.String())
	}
	return findMessage(root)
}

func compactBodyPreview(rawBody []byte, maxLen int) string {
	trimmed := strings.TrimSpace(string(rawBody))
	if trimmed == "" {
		return ""
	}
	clean := strings.Join(strings.Fields(trimmed), " ")
	if len(clean) <= maxLen {
		return clean
	}
	return clean[:maxLen] + "..."
}

func extractUpstreamRequestID(headers http.Header) string {
	if headers == nil {
		return ""
	}
	for _, key := range []string{"x-request-id", "openai-request-id", "request-id", "cf-ray"} {
		if v := strings.TrimSpace(headers.Get(key)); v != "" {
			return v
		}
	}
	return ""
}
