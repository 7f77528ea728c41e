package orchestrator

import (
	"errors"
	"fmt"
)

// ErrInvalidAction is returned for client-side rejected actions: a move
// out of turn, on an empty pit, after game end, or while another
// mutating request is in flight. No request is sent to the server.
type ErrInvalidAction struct {
	Reason string
}

func (e *ErrInvalidAction) Error() string {
	return fmt.Sprintf("invalid action: %s", e.Reason)
}

func IsInvalidAction(err error) bool {
	var errInvalidAction *ErrInvalidAction
	return errors.As(err, &errInvalidAction)
}
