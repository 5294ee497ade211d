package parser

import (
	"errors"
	"fmt"
)

// Kind classifies why a model reply could not be turned into a response.
type Kind string

const (
	KindNoJSONBlock      Kind = "no_json_block_found"
	KindInvalidSyntax    Kind = "invalid_json_syntax"
	KindSchemaValidation Kind = "schema_validation_failed"
)

// Error is returned by Parse. Candidate holds the text that was rejected, if any.
type Error struct {
	Kind      Kind
	Strategy  string
	Detail    string
	Candidate string
}

func (e *Error) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Strategy, e.Detail)
}

// KindOf returns the Kind of a parser error, or "" if err is not one.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
