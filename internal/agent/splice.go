package agent

import "strings"

// Splice replaces the 1-based inclusive line range [start, end] of content
// with code. An end of zero inserts code before line start. Out of range
// bounds are clamped to the file.
func Splice(content string, start, end int, code string) string {
	lines := strings.Split(content, "\n")

	lo := clamp(start-1, 0, len(lines))
	hi := end
	if hi == 0 {
		hi = lo
	}
	hi = clamp(hi, lo, len(lines))

	var replacement []string
	if code != "" {
		replacement = strings.Split(code, "\n")
	}

	out := make([]string, 0, lo+len(replacement)+len(lines)-hi)
	out = append(out, lines[:lo]...)
	out = append(out, replacement...)
	out = append(out, lines[hi:]...)
	return strings.Join(out, "\n")
}

// LineWindow returns lines [start, end] of content. Zero for both returns
// the whole content; an end of zero reads to the end of the file.
func LineWindow(content string, start, end int) string {
	if start == 0 && end == 0 {
		return content
	}
	lines := strings.Split(content, "\n")

	lo := clamp(start-1, 0, len(lines))
	hi := len(lines)
	if end != 0 {
		hi = clamp(end, lo, len(lines))
	}
	return strings.Join(lines[lo:hi], "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
