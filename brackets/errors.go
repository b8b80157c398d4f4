package brackets

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOptions = errors.New("invalid tournament options")
	ErrUnknownKind    = errors.New("unknown tournament kind")
	ErrUnscorable     = errors.New("score rejected")
	// ErrCorruptBracket means a computed routing target is missing. The
	// tournament must be discarded, not repaired.
	ErrCorruptBracket = errors.New("bracket structure is corrupt")
	ErrReplay         = errors.New("event log could not be replayed")
)

// RejectedError carries the validation reason for a refused score.
type RejectedError struct {
	ID     ID
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("match %s: %s", e.ID, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrUnscorable
}

func invalidOptions(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}

func corrupt(id ID, what string) error {
	return fmt.Errorf("%w: %s %s", ErrCorruptBracket, what, id)
}
