package submission

import "errors"

// Validation failures. All are recoverable and reported before any write.
var (
	ErrMissingSelection   = errors.New("no game selected")
	ErrEmptyScore         = errors.New("score is required")
	ErrInvalidScoreFormat = errors.New("score must be a whole number")
	ErrScoreOutOfRange    = errors.New("score must be between 0 and 999999")
)

// IsValidation reports whether err is one of the validation failures above.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingSelection) ||
		errors.Is(err, ErrEmptyScore) ||
		errors.Is(err, ErrInvalidScoreFormat) ||
		errors.Is(err, ErrScoreOutOfRange)
}
