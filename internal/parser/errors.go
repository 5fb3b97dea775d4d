package parser

import (
	"errors"
	"fmt"

	"github.com/mickamy/planview/internal/model"
)

// ErrParse matches every *ParseError through errors.Is.
var ErrParse = errors.New("couldn't parse plan")

// ParseError reports a malformed plan envelope. No partial document is ever
// returned alongside it.
type ParseError struct {
	Format model.Format
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrParse, e.Format)
	if e.Line > 0 {
		msg += fmt.Sprintf(" line %d", e.Line)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

func parseErr(format model.Format, reason string, err error) *ParseError {
	return &ParseError{Format: format, Reason: reason, Err: err}
}
