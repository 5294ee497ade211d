package parser

import (
	"regexp"
	"strings"
)

var (
	codeKeyRe  = regexp.MustCompile(`"code"\s*:\s*"`)
	nextKeyRe  = regexp.MustCompile(`^\s*"(?:tool|path|code|start|end|remarks|success)"\s*:`)
	// After the call object closes: the end of the code array and then of the
	// response, the next call object, or the end of the candidate.
	afterObjRe = regexp.MustCompile(`^\s*(?:\]\s*(?:}\s*$|,\s*"(?:remarks|success)"\s*:)|,\s*\{\s*"(?:tool|path|code|start|end)"\s*:|$)`)
)

// Clean escapes raw double quotes, carriage returns, newlines and tabs inside
// every "code": "..." string value. The end of each value is located
// structurally: the first unescaped quote followed by the next known key or by
// the end of the enclosing object.
func Clean(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/8)

	i := 0
	for {
		loc := codeKeyRe.FindStringIndex(s[i:])
		if loc == nil {
			b.WriteString(s[i:])
			return b.String()
		}

		valStart := i + loc[1]
		b.WriteString(s[i:valStart])

		end := closingQuote(s, valStart)
		if end < 0 {
			b.WriteString(s[valStart:])
			return b.String()
		}

		b.WriteString(escapeRaw(s[valStart:end]))
		i = end
	}
}

func closingQuote(s string, from int) int {
	for j := from; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			if isValueEnd(s[j+1:]) {
				return j
			}
		}
	}
	return -1
}

func isValueEnd(rest string) bool {
	trimmed := strings.TrimLeft(rest, " \t\r\n")
	if trimmed == "" {
		return true
	}

	switch trimmed[0] {
	case ',':
		return nextKeyRe.MatchString(trimmed[1:])
	case '}':
		return afterObjRe.MatchString(trimmed[1:])
	default:
		return false
	}
}

func escapeRaw(v string) string {
	var b strings.Builder
	b.Grow(len(v))

	for j := 0; j < len(v); j++ {
		c := v[j]
		switch c {
		case '\\':
			b.WriteByte(c)
			if j+1 < len(v) {
				j++
				b.WriteByte(v[j])
			}
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
