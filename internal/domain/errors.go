package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrRequestNotFound = errors.New("request record not found")
	ErrKeyNotFound     = errors.New("key not found")
)

type ErrorKind string

const (
	KindConfiguration       ErrorKind = "configuration"
	KindTransactionFailed   ErrorKind = "transaction_failed"
	KindContractInteraction ErrorKind = "contract_interaction"
	KindInvalidResponse     ErrorKind = "invalid_response"
)

// Kind sentinels, matched with errors.Is against any *Error of the same kind.
var (
	ErrConfiguration       = &Error{Kind: KindConfiguration}
	ErrTransactionFailed   = &Error{Kind: KindTransactionFailed}
	ErrContractInteraction = &Error{Kind: KindContractInteraction}
	ErrInvalidResponse     = &Error{Kind: KindInvalidResponse}
)

type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" && e.Cause == nil {
		return fmt.Sprintf("%s error", e.Kind)
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

func NewError(kind ErrorKind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func ConfigurationError(message string, cause error) error {
	return NewError(KindConfiguration, message, cause)
}

func TransactionFailedError(message string, cause error) error {
	return NewError(KindTransactionFailed, message, cause)
}

func ContractInteractionError(message string, cause error) error {
	return NewError(KindContractInteraction, message, cause)
}

func InvalidResponseError(message string, cause error) error {
	return NewError(KindInvalidResponse, message, cause)
}

// KindOf returns the kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return ""
}
