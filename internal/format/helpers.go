package format

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"tracekit/internal/finding"
)

// Bytes formats a byte count with thousands separators, e.g. "1,234 bytes".
func Bytes(n int64) string {
	return humanize.Comma(n) + " bytes"
}

// Duration formats d as "Xm Ys", "Ys" or "Nms".
func Duration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate shortens s to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// Summary renders counts as "2 errors, 1 warning, 0 info".
func Summary(c finding.Counts) string {
	return fmt.Sprintf("%s, %s, %d info",
		english.Plural(c.Errors, "error", ""),
		english.Plural(c.Warnings, "warning", ""),
		c.Info)
}
