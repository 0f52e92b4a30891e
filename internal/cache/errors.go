package cache

import "fmt"

// PersistenceError reports a failed write or read against a station store.
type PersistenceError struct {
	Backend string
	Err     error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s persistence error: %v", e.Backend, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func NewPersistenceError(backend string, err error) *PersistenceError {
	return &PersistenceError{
		Backend: backend,
		Err:     err,
	}
}
