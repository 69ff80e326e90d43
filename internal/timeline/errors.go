package timeline

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrConfiguration marks invalid analysis options. It is the only condition
	// that aborts a whole analysis on otherwise valid input.
	ErrConfiguration = errors.New("invalid timeline configuration")

	// ErrTokenizerUnavailable marks a tokenizer that cannot serve any request.
	ErrTokenizerUnavailable = errors.New("tokenizer unavailable")
)

// ParseError describes a single match whose captured groups could not be
// converted. The match is dropped and extraction continues.
type ParseError struct {
	Text   string
	Type   ExprType
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s expression %q: %s", e.Type, e.Text, e.Reason)
}

func configErrorf(format string, args ...any) error {
	return errors.WithHint(
		errors.Wrapf(ErrConfiguration, format, args...),
		"valid group_by values are year, century and dynasty; min_confidence must be within [0,1]",
	)
}
