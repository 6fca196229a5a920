package repository

import "errors"

// Sentinel kinds for record store errors.
var (
	ErrPersistence  = errors.New("persistence error")
	ErrInvalidOwner = errors.New("owner id is required")
	ErrClosed       = errors.New("store is closed")
)

// PersistenceError carries the underlying store failure. Its message is the
// underlying message, unchanged.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return ErrPersistence.Error()
	}
	return e.Err.Error()
}

// Unwrap exposes the underlying failure.
func (e *PersistenceError) Unwrap() error { return e.Err }

// Is reports every PersistenceError as ErrPersistence.
func (e *PersistenceError) Is(target error) bool { return target == ErrPersistence }

func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
