package limits

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Window is one rate-limit budget (requests or tokens).
type Window struct {
	Limit     *int           `json:"limit,omitempty"`
	Remaining *int           `json:"remaining,omitempty"`
	ResetsIn  *time.Duration `json:"resets_in,omitempty"`
}

// UsedPercent reports how much of the window is consumed, or -1 when the
// headers did not carry both limit and remaining.
func (w *Window) UsedPercent() float64 {
	if w == nil || w.Limit == nil || w.Remaining == nil || *w.Limit <= 0 {
		return -1
	}
	used := float64(*w.Limit-*w.Remaining) / float64(*w.Limit) * 100
	return math.Max(0, math.Min(100, used))
}

// Snapshot holds the request and token windows of a single response.
type Snapshot struct {
	Requests *Window `json:"requests,omitempty"`
	Tokens   *Window `json:"tokens,omitempty"`
}

// StoredSnapshot includes a capture timestamp with the snapshot.
type StoredSnapshot struct {
	CapturedAt time.Time `json:"captured_at"`
	Snapshot   Snapshot  `json:"snapshot"`
}

// ParseHeaders extracts x-ratelimit-* information from response headers.
func ParseHeaders(headers http.Header) *Snapshot {
	if headers == nil {
		return nil
	}
	requests := parseWindow(headers, "requests")
	tokens := parseWindow(headers, "tokens")
	if requests == nil && tokens == nil {
		return nil
	}
	return &Snapshot{Requests: requests, Tokens: tokens}
}

func parseWindow(headers http.Header, kind string) *Window {
	w := &Window{
		Limit:     parseInt(headers.Get("x-ratelimit-limit-" + kind)),
		Remaining: parseInt(headers.Get("x-ratelimit-remaining-" + kind)),
		ResetsIn:  ParseReset(headers.Get("x-ratelimit-reset-" + kind)),
	}
	if w.Limit == nil && w.Remaining == nil && w.ResetsIn == nil {
		return nil
	}
	return w
}

func parseInt(v string) *int {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &i
}

// ParseReset parses a reset value. Backends send either Go-style
// durations ("6m0s", "120ms") or plain seconds ("1.5").
func ParseReset(v string) *time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return &d
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 {
		return nil
	}
	d := time.Duration(secs * float64(time.Second))
	return &d
}

// Tracker keeps the most recent snapshot seen by a client.
type Tracker struct {
	mu   sync.Mutex
	last *StoredSnapshot
	now  func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Record stores the snapshot carried by headers, if any.
func (t *Tracker) Record(headers http.Header) {
	snap := ParseHeaders(headers)
	if snap == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = &StoredSnapshot{CapturedAt: t.now().UTC(), Snapshot: *snap}
}

// Last returns the most recent snapshot, or nil when none was recorded.
func (t *Tracker) Last() *StoredSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	cp := *t.last
	return &cp
}

// ComputeResetAt calculates when a rate limit window will reset.
func ComputeResetAt(capturedAt time.Time, w *Window) *time.Time {
	if w == nil || w.ResetsIn == nil {
		return nil
	}
	t := capturedAt.Add(*w.ResetsIn)
	return &t
}
