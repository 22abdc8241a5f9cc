package limits

import (
	"net/http"
	"testing"
	"time"
)

func makeHeaders(pairs ...string) http.Header {
	h := make(http.Header)
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

func TestParseHeadersBothWindows(t *testing.T) {
	h := makeHeaders(
		"x-ratelimit-limit-requests", "100",
		"x-ratelimit-remaining-requests", "75",
		"x-ratelimit-reset-requests", "6m0s",
		"x-ratelimit-limit-tokens", "40000",
		"x-ratelimit-remaining-tokens", "39000",
		"x-ratelimit-reset-tokens", "1.5",
	)

	snap := ParseHeaders(h)
	if snap == nil {
		t.Fatal("expected non-nil snapshot")
	}
	if snap.Requests == nil || snap.Tokens == nil {
		t.Fatalf("expected both windows, got %+v", snap)
	}
	if got := snap.Requests.UsedPercent(); got != 25 {
		t.Errorf("requests used percent: got %v, want 25", got)
	}
	if snap.Requests.ResetsIn == nil || *snap.Requests.ResetsIn != 6*time.Minute {
		t.Errorf("requests reset: got %v, want 6m", snap.Requests.ResetsIn)
	}
	if snap.Tokens.ResetsIn == nil || *snap.Tokens.ResetsIn != 1500*time.Millisecond {
		t.Errorf("tokens reset: got %v, want 1.5s", snap.Tokens.ResetsIn)
	}
}

func TestParseHeadersMissing(t *testing.T) {
	if snap := ParseHeaders(makeHeaders("content-type", "application/json")); snap != nil {
		t.Fatalf("expected nil snapshot, got %+v", snap)
	}
	if snap := ParseHeaders(nil); snap != nil {
		t.Fatalf("expected nil snapshot for nil headers, got %+v", snap)
	}
}

func TestParseHeadersPartialWindow(t *testing.T) {
	snap := ParseHeaders(makeHeaders("x-ratelimit-remaining-tokens", "12"))
	if snap == nil || snap.Tokens == nil {
		t.Fatal("expected tokens window")
	}
	if snap.Requests != nil {
		t.Errorf("expected nil requests window, got %+v", snap.Requests)
	}
	if got := snap.Tokens.UsedPercent(); got != -1 {
		t.Errorf("used percent without limit: got %v, want -1", got)
	}
}

func TestParseReset(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"20ms", 20 * time.Millisecond, true},
		{"2", 2 * time.Second, true},
		{"", 0, false},
		{"-1", 0, false},
		{"soon", 0, false},
	}
	for _, tt := range tests {
		got := ParseReset(tt.in)
		if (got != nil) != tt.ok {
			t.Errorf("ParseReset(%q) ok = %v, want %v", tt.in, got != nil, tt.ok)
			continue
		}
		if got != nil && *got != tt.want {
			t.Errorf("ParseReset(%q) = %v, want %v", tt.in, *got, tt.want)
		}
	}
}

func TestTrackerRecord(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	tr := NewTracker()
	tr.now = func() time.Time { return fixed }

	if tr.Last() != nil {
		t.Fatal("expected no snapshot before recording")
	}
	tr.Record(makeHeaders("x-custom", "1"))
	if tr.Last() != nil {
		t.Fatal("headers without limits should not record")
	}
	tr.Record(makeHeaders("x-ratelimit-remaining-requests", "3", "x-ratelimit-reset-requests", "10s"))
	got := tr.Last()
	if got == nil || !got.CapturedAt.Equal(fixed) {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	reset := ComputeResetAt(got.CapturedAt, got.Snapshot.Requests)
	if reset == nil || !reset.Equal(fixed.Add(10*time.Second)) {
		t.Fatalf("reset at = %v", reset)
	}
}

func TestComputeResetAtNil(t *testing.T) {
	if ComputeResetAt(time.Now(), nil) != nil {
		t.Fatal("expected nil for nil window")
	}
	if ComputeResetAt(time.Now(), &Window{}) != nil {
		t.Fatal("expected nil without reset")
	}
}
