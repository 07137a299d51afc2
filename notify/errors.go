// notify/errors.go
package notify

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a notifier failure.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindRateLimited Kind = "rate_limited"
	KindSpamBlocked Kind = "spam_blocked"
	KindTransport   Kind = "transport"
	KindInternal    Kind = "internal"
)

// Messages shown to the submitter.
const (
	MsgMissingFields  = "Missing required fields"
	MsgInvalidName    = "Nome non valido"
	MsgInvalidMessage = "Messaggio non valido"
	MsgTooManyTries   = "Troppi tentativi. Riprova più tardi."
	MsgSpam           = "Messaggio identificato come spam"
	MsgInternal       = "Failed to process contact request"
	MsgSendFailed     = "Failed to send email"
)

// Error is a classified notifier failure. Message is safe to show to
// clients; Err carries the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code for the error.
func (e *Error) HTTPStatus() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Status: http.StatusBadRequest}
}

func rateLimitedError() *Error {
	return &Error{Kind: KindRateLimited, Message: MsgTooManyTries, Status: http.StatusTooManyRequests}
}

func spamBlockedError() *Error {
	return &Error{Kind: KindSpamBlocked, Message: MsgSpam, Status: http.StatusBadRequest}
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: MsgSendFailed, Status: http.StatusInternalServerError, Err: err}
}

func internalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: MsgInternal, Status: http.StatusInternalServerError, Err: err}
}

// AsError extracts an *Error from err, classifying anything else as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return internalError(err)
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}
