package backend

import "errors"

// ErrNotFound indicates the entity does not exist in the backend.
var ErrNotFound = errors.New("not found")

// ErrStoreClosed indicates the backend has been closed.
var ErrStoreClosed = errors.New("store closed")

// CallError wraps a backend failure with the operation that produced it.
// The engine surfaces these uniformly to user-facing code.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// WrapCall normalizes a backend error into a CallError. A nil error
// passes through.
func WrapCall(op string, err error) error {
	if err == nil {
		return nil
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		return err
	}
	return &CallError{Op: op, Err: err}
}
