package network

import "fmt"

// SubmissionError reports a user station submission that could not be stored.
type SubmissionError struct {
	Reason string
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("station submission failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("station submission failed: %s", e.Reason)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func NewSubmissionError(reason string, err error) *SubmissionError {
	return &SubmissionError{
		Reason: reason,
		Err:    err,
	}
}
