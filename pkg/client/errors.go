package client

import (
	"errors"
	"fmt"
)

// ErrNetwork is returned when a request fails at the transport level and
// no response was received. Mutating requests are not safely retriable
// after this error since the server may have already applied them.
type ErrNetwork struct {
	Err error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

func IsNetworkError(err error) bool {
	var errNetwork *ErrNetwork
	return errors.As(err, &errNetwork)
}

// ErrProtocol is returned when a response was received but carried a
// non-success status or a malformed body.
type ErrProtocol struct {
	StatusCode int
	Reason     string
}

func (e *ErrProtocol) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("protocol error: status %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

func IsProtocolError(err error) bool {
	var errProtocol *ErrProtocol
	return errors.As(err, &errProtocol)
}
