// Package format renders plan statistics for people: grouped numbers,
// durations, buffer sizes and percentages. Unknown values print as
// "unknown" everywhere.
package format

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/mickamy/planview/internal/model"
)

const (
	unknown   = "unknown"
	blockSize = 8192
)

var printer = message.NewPrinter(language.English)

// Number prints a count with thousands separators, e.g. "12,345".
func Number(v model.Value) string {
	n, ok := v.Float64()
	if !ok {
		return unknown
	}
	if n == math.Trunc(n) {
		return printer.Sprintf("%d", int64(n))
	}
	return printer.Sprintf("%.2f", n)
}

// Cost prints a planner cost with two decimals.
func Cost(v model.Value) string {
	n, ok := v.Float64()
	if !ok {
		return unknown
	}
	return printer.Sprintf("%.2f", n)
}

// Duration prints milliseconds, switching to seconds and minutes for long
// timings.
func Duration(v model.Value) string {
	ms, ok := v.Float64()
	if !ok {
		return unknown
	}
	switch {
	case ms < 1:
		return printer.Sprintf("%.3f ms", ms)
	case ms < 1000:
		return printer.Sprintf("%.2f ms", ms)
	case ms < 60_000:
		return printer.Sprintf("%.2f s", ms/1000)
	default:
		minutes := math.Floor(ms / 60_000)
		return printer.Sprintf("%d min %.1f s", int64(minutes), (ms-minutes*60_000)/1000)
	}
}

// Percent prints a rounded percentage such as "42%".
func Percent(v model.Value) string {
	n, ok := v.Round().Float64()
	if !ok {
		return unknown
	}
	return printer.Sprintf("%d%%", int64(n))
}

// Factor prints an estimate factor such as "x12.5".
func Factor(v model.Value) string {
	n, ok := v.Float64()
	if !ok {
		return unknown
	}
	return printer.Sprintf("x%.1f", n)
}

// Blocks prints a buffer count with its size, e.g. "1,024 (8.00 MiB)".
func Blocks(v model.Value) string {
	n, ok := v.Float64()
	if !ok {
		return unknown
	}
	return fmt.Sprintf("%s (%s)", Number(v), Bytes(n))
}

// Bytes converts a buffer count into a readable size using 8KiB blocks.
func Bytes(blocks float64) string {
	if blocks <= 0 {
		return "0 B"
	}
	size := blocks * blockSize
	switch {
	case size >= 1<<30:
		return printer.Sprintf("%.2f GiB", size/(1<<30))
	case size >= 1<<20:
		return printer.Sprintf("%.2f MiB", size/(1<<20))
	default:
		return printer.Sprintf("%.2f KiB", size/(1<<10))
	}
}

// Truncate shortens s to at most limit runes followed by "...". A
// non-positive limit leaves s unchanged.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

// Abbreviate keeps s when it fits within limit runes and otherwise cuts it
// to keep runes plus "...". Compact labels use a short cut for long names
// while leaving medium names whole.
func Abbreviate(s string, limit, keep int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return Truncate(s, keep)
}

// Whitespace collapses runs of whitespace into single spaces.
func Whitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
