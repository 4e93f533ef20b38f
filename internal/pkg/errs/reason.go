package errs

import "errors"

// Categories of the error taxonomy. A ReasonError always belongs to exactly one.
var (
	ErrValidation   = errors.New("validation error")
	ErrSecurity     = errors.New("security rejection")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBusinessRule = errors.New("business rule rejection")
	ErrTransient    = errors.New("transient failure")
	ErrInconsistent = errors.New("inconsistent state")
)

type Reason string

// ReasonError is a sentinel with a stable machine-readable code.
type ReasonError struct {
	Reason   Reason
	category error
	msg      string
	marks    []error
}

func NewReason(reason Reason, category error, msg string, marks ...error) *ReasonError {
	return &ReasonError{Reason: reason, category: category, msg: msg, marks: marks}
}

func (e *ReasonError) Error() string { return e.msg }

func (e *ReasonError) Category() error { return e.category }

func (e *ReasonError) Is(target error) bool {
	if target == e.category {
		return true
	}
	for _, m := range e.marks {
		if target == m {
			return true
		}
	}
	return false
}

// ReasonOf returns the code of the first ReasonError in the chain.
func ReasonOf(err error) (Reason, bool) {
	var re *ReasonError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
