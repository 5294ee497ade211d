package agent

import (
	"regexp"
	"strings"
)

var (
	bracketTimestampRe = regexp.MustCompile(`\[\d{4}-\d{2}-\d{2}[T ][0-9:.]+Z?\]\s?|\[\d{2}:\d{2}:\d{2}(?:\.\d+)?\]\s?`)
	isoTimestampRe     = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?\s?`)
	errorLineRe        = regexp.MustCompile(`(?i)error|failed|failure|exception`)
)

// SanitizeLogs compacts CI output for a prompt. Timestamps are stripped,
// only lines mentioning an error are kept together with contextLines lines
// around each (overlapping windows merged), and the result is cut to
// maxChars. If nothing matches, the tail of the log is returned instead.
func SanitizeLogs(raw string, contextLines, maxChars int) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = bracketTimestampRe.ReplaceAllString(raw, "")
	raw = isoTimestampRe.ReplaceAllString(raw, "")

	lines := strings.Split(raw, "\n")
	keep := make([]bool, len(lines))
	matched := false
	for i, line := range lines {
		if !errorLineRe.MatchString(line) {
			continue
		}
		matched = true
		for j := max(0, i-contextLines); j <= min(len(lines)-1, i+contextLines); j++ {
			keep[j] = true
		}
	}

	if !matched {
		return tail(strings.TrimSpace(raw), maxChars)
	}

	var out []string
	prev := -1
	for i, k := range keep {
		if !k {
			continue
		}
		if prev >= 0 && i != prev+1 {
			out = append(out, "...")
		}
		out = append(out, lines[i])
		prev = i
	}

	return head(strings.Join(out, "\n"), maxChars)
}

func head(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

func tail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[len(s)-n:], "")
}
