package gateway

import (
	"fmt"
	"net/http"
)

// TransportError is the single failure shape of the gateway: a non-200 response,
// a network failure, or a response that breaks the contract. It carries a message
// for people; Status is kept for logs only and is 0 when no response arrived.
type TransportError struct {
	Op     string
	Status int
	Msg    string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

func statusError(op string, status int) *TransportError {
	return &TransportError{
		Op:     op,
		Status: status,
		Msg:    fmt.Sprintf("server returned %d %s", status, http.StatusText(status)),
	}
}

func networkError(op string, err error) *TransportError {
	return &TransportError{Op: op, Msg: "request failed", Err: err}
}

func contractError(op, msg string, err error) *TransportError {
	return &TransportError{Op: op, Status: http.StatusOK, Msg: msg, Err: err}
}
