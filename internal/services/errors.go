package services

import "errors"

var (
	// ErrInvalidForm marks validation failures of a visit or uplift form.
	ErrInvalidForm = errors.New("invalid form")

	// ErrQueuedOffline is returned when the backend could not be reached and the record was
	// stored for a later retry.
	ErrQueuedOffline = errors.New("backend unreachable, record queued for retry")
)

// ActionableError carries a message that can be shown to the agent as is.
type ActionableError struct {
	Message string
	Err     error
}

func (e *ActionableError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ActionableError) Unwrap() error {
	return e.Err
}

func invalidForm(message string) error {
	return &ActionableError{Message: message, Err: ErrInvalidForm}
}
