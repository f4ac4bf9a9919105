package model

import (
	"errors"
	"fmt"
)

// ErrorType classifies every failure crossing a public boundary.
type ErrorType string

const (
	// ErrorValidation rejects input before any dispatch.
	ErrorValidation ErrorType = "validation"
	// ErrorBusiness is a backend rejection for a domain reason.
	ErrorBusiness ErrorType = "business"
	// ErrorTimeout means the operation exceeded its allotted window.
	ErrorTimeout ErrorType = "timeout"
	// ErrorNetwork is a transport failure.
	ErrorNetwork ErrorType = "network"
	// ErrorStorage is a local persistence failure.
	ErrorStorage ErrorType = "storage"
	// ErrorAuthRequired means the operation was attempted without a valid
	// session.
	ErrorAuthRequired ErrorType = "auth_required"
)

// Error carries the taxonomy type alongside the message. All public
// operations return *Error values; nothing escapes as a panic.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

func WrapError(t ErrorType, message string, err error) *Error {
	return &Error{Type: t, Message: message, Err: err}
}

// TypeOf extracts the taxonomy type from an error chain. Unclassified
// errors report as network failures, the weakest assumption.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorNetwork
}

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already registered")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrNoSession         = errors.New("no active session")
)
