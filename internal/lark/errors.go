package lark

import (
	"fmt"
)

// TransportError is a network level failure talking to the open platform.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("lark %s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError means the auth endpoint refused to issue a token.
// Body is the raw response so the caller can log what the platform said.
type AuthError struct {
	Kind   TokenKind
	Status int
	Code   int
	Body   string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lark auth %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("lark auth %s: status %d code %d: %s", e.Kind, e.Status, e.Code, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// DispatchError means a message could not be sent or replied to.
type DispatchError struct {
	Op     string
	Status int
	Code   int
	Body   string
	Err    error
}

func (e *DispatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("lark %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("lark %s: status %d code %d: %s", e.Op, e.Status, e.Code, e.Body)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// APIError is returned by read endpoints (bitable) on a non-success reply.
type APIError struct {
	Op     string
	Status int
	Code   int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lark %s: status %d code %d: %s", e.Op, e.Status, e.Code, e.Body)
}
