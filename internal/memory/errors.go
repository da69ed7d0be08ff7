package memory

import "fmt"

// ValidationError reports missing or empty required input. The HTTP
// layer maps it to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown user id on a lookup. Maps to 404.
type NotFoundError struct {
	UserID string
}

func (e *NotFoundError) Error() string { return "User not found" }

// StorageFault wraps a backing-store failure. Maps to 500. No retries:
// every fault is surfaced once, synchronously, to the caller.
type StorageFault struct {
	Op  string
	Err error
}

func (e *StorageFault) Error() string {
	return fmt.Sprintf("memory: %s: %v", e.Op, e.Err)
}

func (e *StorageFault) Unwrap() error { return e.Err }

// storageFault wraps err unless it already belongs to the taxonomy.
func storageFault(op string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *ValidationError, *NotFoundError, *StorageFault:
		return err
	}
	return &StorageFault{Op: op, Err: err}
}
