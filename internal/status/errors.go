package status

import (
	"errors"
	"fmt"
)

// Error is a typed failure carrying the wire status it maps to.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code.Message()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error with the given cause
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Cause: cause}
}

// New creates a typed failure with a formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed failure around cause. The message defaults to the
// cause's text.
func Wrap(code Code, cause error) *Error {
	return &Error{Code: code, Cause: cause}
}

func NoSuchElementf(format string, args ...interface{}) *Error {
	return New(NoSuchElement, format, args...)
}

func StaleElementf(format string, args ...interface{}) *Error {
	return New(StaleElementReference, format, args...)
}

func InvalidSelectorf(format string, args ...interface{}) *Error {
	return New(InvalidSelector, format, args...)
}

func NoSuchDriverf(format string, args ...interface{}) *Error {
	return New(NoSuchDriver, format, args...)
}

func InvalidCoordinatesf(format string, args ...interface{}) *Error {
	return New(InvalidElementCoordinates, format, args...)
}

func UnknownCommandf(format string, args ...interface{}) *Error {
	return New(UnknownCommand, format, args...)
}

func NoSuchWindowf(format string, args ...interface{}) *Error {
	return New(NoSuchWindow, format, args...)
}

func JSONDecodef(format string, args ...interface{}) *Error {
	return New(JSONDecoderError, format, args...)
}

// FromError maps err onto a wire status code and message. A nil error is
// Success. Errors that carry no *Error in their chain are UnknownError.
func FromError(err error) (Code, string) {
	if err == nil {
		return Success, ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code, err.Error()
	}
	return UnknownError, err.Error()
}

// Is reports whether err maps to code.
func Is(err error, code Code) bool {
	c, _ := FromError(err)
	return c == code
}
