package eventbus

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotRunning is returned by Emit after the bus was stopped.
	ErrNotRunning = errors.New("event bus is not running")

	// ErrAlreadyRunning is returned when Start is called twice.
	ErrAlreadyRunning = errors.New("event bus is already running")

	// ErrEventReused is returned when an event instance is emitted a second time.
	ErrEventReused = errors.New("event was already emitted")

	ErrNilHandler = errors.New("handler is nil")
	ErrNilOwner   = errors.New("owner is nil")
	ErrNilEvent   = errors.New("event is nil")
)

// HandlerFault describes a handler that returned an error or panicked.
type HandlerFault struct {
	Key       string
	OwnerID   uuid.UUID
	OwnerName string
	BindingID uuid.UUID
	Err       error
	Panicked  bool
	Stack     []byte
}

func (f *HandlerFault) Error() string {
	if f.Panicked {
		return fmt.Sprintf("handler %s of %q panicked on %q: %v", f.BindingID, f.OwnerName, f.Key, f.Err)
	}
	return fmt.Sprintf("handler %s of %q failed on %q: %v", f.BindingID, f.OwnerName, f.Key, f.Err)
}

func (f *HandlerFault) Unwrap() error { return f.Err }

// FaultReporter receives every handler fault after it was logged.
type FaultReporter func(fault *HandlerFault)
