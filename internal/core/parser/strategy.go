package parser

import (
	"regexp"
	"strings"
)

// Strategy extracts candidate JSON object texts from a model reply.
type Strategy struct {
	Name    string
	Extract func(text string) []string
}

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*\\n?(.*?)\\s*```")
	anyFenceRe  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)\\s*```")
	altFenceRe  = regexp.MustCompile(`(?s)(?:'{3,}|~{3,})[a-zA-Z]*\s*\n?(.*?)\s*(?:'{3,}|~{3,})`)
)

// JSONFence matches blocks fenced with ```json.
var JSONFence = Strategy{Name: "json_fence", Extract: fenced(jsonFenceRe)}

// AnyFence matches any triple-backtick block regardless of language tag.
var AnyFence = Strategy{Name: "any_fence", Extract: fenced(anyFenceRe)}

// AltFence matches blocks fenced with ''' or ~~~ runs.
var AltFence = Strategy{Name: "alt_fence", Extract: fenced(altFenceRe)}

// BareObject takes the span from the first '{' to the last '}'.
var BareObject = Strategy{Name: "bare_object", Extract: bareObject}

// DefaultStrategies is the extraction order used by New when none are given.
var DefaultStrategies = []Strategy{JSONFence, AnyFence, AltFence, BareObject}

func fenced(re *regexp.Regexp) func(string) []string {
	return func(text string) []string {
		var out []string
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			body := strings.TrimSpace(m[1])
			if strings.HasPrefix(body, "{") {
				out = append(out, body)
			}
		}
		return out
	}
}

func bareObject(text string) []string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil
	}
	return []string{text[start : end+1]}
}
