package estimator

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("invalid configuration")
	ErrNotFitted     = errors.New("estimator not fitted")
	ErrValidation    = errors.New("invalid input")
	ErrCapability    = errors.New("capability not supported")
)

// NotFittedError reports an inference call on an estimator that has not been
// fitted yet. It matches ErrNotFitted with errors.Is.
type NotFittedError struct {
	Estimator  string
	Attributes []string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s is not fitted yet: missing %s; call Fit first",
		e.Estimator, strings.Join(e.Attributes, ", "))
}

func (e *NotFittedError) Unwrap() error {
	return ErrNotFitted
}

// NotFitted returns a NotFittedError for the named estimator and attributes.
func NotFitted(estimator string, attrs ...string) error {
	return &NotFittedError{Estimator: estimator, Attributes: attrs}
}
