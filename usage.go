package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/n0madic/go-chatkit/internal/limits"
)

func printUsageLimits(w io.Writer, stored *limits.StoredSnapshot) {
	fmt.Fprintln(w, "\U0001F4CA Usage Limits")

	if stored == nil {
		fmt.Fprintln(w, "  The backend did not report rate limits.")
		return
	}

	fmt.Fprintf(w, "Last updated: %s\n", formatLocalDateTime(stored.CapturedAt))

	type windowInfo struct {
		icon   string
		desc   string
		window *limits.Window
	}
	var windows []windowInfo
	if stored.Snapshot.Requests != nil {
		windows = append(windows, windowInfo{"⚡", "Requests", stored.Snapshot.Requests})
	}
	if stored.Snapshot.Tokens != nil {
		windows = append(windows, windowInfo{"\U0001F4DD", "Tokens", stored.Snapshot.Tokens})
	}

	for _, wi := range windows {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s %s\n", wi.icon, wi.desc)

		if pct := wi.window.UsedPercent(); pct >= 0 {
			color := usageColor(pct)
			reset := "\033[0m"
			fmt.Fprintf(w, "%s%s%s %s%5.1f%% used%s | %d of %d left\n",
				color, renderProgressBar(pct), reset, color, pct, reset, *wi.window.Remaining, *wi.window.Limit)
		}

		resetIn := formatResetDuration(wi.window.ResetsIn)
		resetAt := limits.ComputeResetAt(stored.CapturedAt, wi.window)
		if resetIn != "" && resetAt != nil {
			fmt.Fprintf(w, "    ⏳ Resets in: %s at %s\n", resetIn, formatLocalDateTime(*resetAt))
		} else if resetIn != "" {
			fmt.Fprintf(w, "    ⏳ Resets in: %s\n", resetIn)
		}
	}
}

const barSegments = 30

func renderProgressBar(pct float64) string {
	ratio := min(max(pct/100.0, 0), 1)
	filledExact := ratio * float64(barSegments)
	filled := int(filledExact)
	hasPartial := filledExact-float64(filled) > 0.5
	if hasPartial {
		filled++
	}
	filled = min(filled, barSegments)
	empty := barSegments - filled
	if hasPartial && filled > 0 {
		return "[" + strings.Repeat("█", filled-1) + "▓" + strings.Repeat("░", empty) + "]"
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}

func usageColor(pct float64) string {
	switch {
	case pct >= 90:
		return "\033[91m"
	case pct >= 75:
		return "\033[93m"
	case pct >= 50:
		return "\033[94m"
	}
	return "\033[92m"
}

func formatLocalDateTime(t time.Time) string {
	local := t.Local()
	return fmt.Sprintf("%s %s", local.Format("Jan 02, 2006 15:04:05"), local.Format("MST"))
}

// formatResetDuration renders a reset delay in the coarsest useful units.
// Rate-limit windows are short, so seconds are kept.
func formatResetDuration(d *time.Duration) string {
	if d == nil {
		return ""
	}
	v := int(max(*d, 0).Seconds())
	hours := v / 3600
	v %= 3600
	minutes := v / 60
	seconds := v % 60

	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}
	return strings.Join(parts, " ")
}
