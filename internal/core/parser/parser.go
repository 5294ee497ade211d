// Package parser turns free-form model replies into validated tool-call
// responses. Candidates are extracted by an ordered list of strategies; a
// later strategy runs only when no earlier one produced a valid response.
package parser

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/colonyops/promptstack/internal/core/toolcall"
)

// Result is a successfully parsed reply.
type Result struct {
	Response toolcall.Response
	Strategy string
	// Cleaned is set when the candidate only decoded after Clean.
	Cleaned bool
}

// Fallback reports whether the reply was not fenced as ```json.
func (r Result) Fallback() bool {
	return r.Strategy != JSONFence.Name
}

// Parser extracts and validates responses.
type Parser struct {
	strategies []Strategy
}

// New returns a parser using the given strategies, or DefaultStrategies.
func New(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Parser{strategies: strategies}
}

// Parse extracts exactly one response from text. Strategies are tried in
// order and, within a strategy, the largest candidate that decodes and
// validates wins. If no strategy succeeds, the error for the largest candidate
// of the first strategy that found any is returned.
func (p *Parser) Parse(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, &Error{Kind: KindNoJSONBlock, Detail: "reply is empty"}
	}

	var firstErr *Error
	for _, s := range p.strategies {
		candidates := s.Extract(text)
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return len(candidates[i]) > len(candidates[j])
		})

		for _, c := range candidates {
			res, err := decode(c)
			if err == nil {
				res.Strategy = s.Name
				return res, nil
			}
			if firstErr == nil {
				err.Strategy = s.Name
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return Result{}, firstErr
	}
	return Result{}, &Error{Kind: KindNoJSONBlock, Detail: "no JSON object found in reply"}
}

func decode(candidate string) (Result, *Error) {
	raw := []byte(candidate)
	cleaned := false
	if !json.Valid(raw) {
		c := Clean(candidate)
		if !json.Valid([]byte(c)) {
			var v any
			err := json.Unmarshal([]byte(c), &v)
			return Result{}, &Error{Kind: KindInvalidSyntax, Detail: err.Error(), Candidate: candidate}
		}
		raw = []byte(c)
		cleaned = true
	}

	var resp toolcall.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Result{}, &Error{Kind: KindSchemaValidation, Detail: err.Error(), Candidate: candidate}
	}
	if err := resp.Validate(); err != nil {
		return Result{}, &Error{Kind: KindSchemaValidation, Detail: err.Error(), Candidate: candidate}
	}

	return Result{Response: resp, Cleaned: cleaned}, nil
}
