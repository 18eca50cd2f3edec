// Package scenes splits a narration script into ordered scene units
// and allocates caption timing across them.
package scenes

import (
	"fmt"
	"strings"
	"time"
)

// Split breaks a script into scene units on blank-line-separated
// blocks. Empty blocks are dropped; order is preserved. Scene index
// drives image numbering and caption timing downstream.
func Split(script string) []string {
	normalized := strings.ReplaceAll(script, "\r\n", "\n")
	blocks := strings.Split(normalized, "\n\n")
	units := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			units = append(units, trimmed)
		}
	}
	return units
}

// Join is the inverse of Split for non-empty units.
func Join(units []string) string {
	return strings.Join(units, "\n\n")
}

// Caption is one timed subtitle entry.
type Caption struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// AllocateCaptions slices the narration duration evenly across the
// scenes: contiguous, non-overlapping, last end equal to the total.
// Equal slicing is a deliberate approximation, not forced alignment.
func AllocateCaptions(total time.Duration, units []string) []Caption {
	n := len(units)
	if n == 0 || total <= 0 {
		return nil
	}
	slice := total / time.Duration(n)
	captions := make([]Caption, n)
	for i, text := range units {
		start := slice * time.Duration(i)
		end := start + slice
		if i == n-1 {
			end = total
		}
		captions[i] = Caption{Index: i + 1, Start: start, End: end, Text: text}
	}
	return captions
}

// FormatSRT renders captions as a SubRip document.
func FormatSRT(captions []Caption) string {
	var b strings.Builder
	for i, caption := range captions {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", caption.Index, srtTimestamp(caption.Start), srtTimestamp(caption.End), caption.Text)
	}
	return b.String()
}

func srtTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	millis := (d - seconds*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
