package pipeline

import "sync"

// ErrorCollector keeps the most recent error of a service as text. It is
// best-effort diagnostics and never affects control flow.
type ErrorCollector struct {
	mu   sync.Mutex
	last string
}

// Set records err. A nil error is ignored.
func (c *ErrorCollector) Set(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	c.last = err.Error()
	c.mu.Unlock()
}

// Clear forgets the recorded error.
func (c *ErrorCollector) Clear() {
	c.mu.Lock()
	c.last = ""
	c.mu.Unlock()
}

// Get returns the recorded error text, or "".
func (c *ErrorCollector) Get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}
