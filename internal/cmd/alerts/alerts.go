// Package alerts turns command failures into short status notifications
// with actionable details.
package alerts

import (
	"fmt"
	"io"

	"github.com/agentstation/twinmap/pkg/errors"
	"github.com/agentstation/twinmap/pkg/present"
)

// Level represents the severity of an alert.
type Level int

const (
	// LevelError indicates a failure or error condition.
	LevelError Level = iota
	// LevelWarning indicates a potential issue or important notice.
	LevelWarning
	// LevelInfo indicates general informational messages.
	LevelInfo
	// LevelSuccess indicates successful completion of an operation.
	LevelSuccess
)

// String returns the string representation of the alert level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "error"
	case LevelWarning:
		return "warning"
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// Icon returns the marker printed in front of the alert.
func (l Level) Icon() string {
	switch l {
	case LevelError:
		return "✗"
	case LevelWarning:
		return present.SymbolGraphOnly
	case LevelInfo:
		return "i"
	case LevelSuccess:
		return present.SymbolMatched
	default:
		return present.SymbolUnknown
	}
}

// Alert represents a status notification.
type Alert struct {
	Level   Level
	Message string
	Details []string
	Err     error
}

// New creates a new alert with the given level and message.
func New(level Level, message string) *Alert {
	return &Alert{Level: level, Message: message}
}

// NewError creates a new error alert.
func NewError(message string) *Alert {
	return New(LevelError, message)
}

// NewWarning creates a new warning alert.
func NewWarning(message string) *Alert {
	return New(LevelWarning, message)
}

// NewSuccess creates a new success alert.
func NewSuccess(message string) *Alert {
	return New(LevelSuccess, message)
}

// WithError adds an underlying error to the alert.
func (a *Alert) WithError(err error) *Alert {
	a.Err = err
	return a
}

// WithDetails adds additional context details to the alert.
func (a *Alert) WithDetails(details ...string) *Alert {
	a.Details = append(a.Details, details...)
	return a
}

// String returns the first line of the alert.
func (a *Alert) String() string {
	message := fmt.Sprintf("%s %s", a.Level.Icon(), a.Message)
	if a.Err != nil {
		message += fmt.Sprintf(": %v", a.Err)
	}
	return message
}

// Write prints the alert and its indented details to w.
func (a *Alert) Write(w io.Writer) error {
	if _, err := fmt.Fprintln(w, a.String()); err != nil {
		return err
	}
	for _, detail := range a.Details {
		if _, err := fmt.Fprintf(w, "   %s\n", detail); err != nil {
			return err
		}
	}
	return nil
}

// FromError classifies err into an alert a user can act on.
func FromError(err error) *Alert {
	switch {
	case err == nil:
		return nil
	case errors.IsInvalidIdentifier(err):
		return NewError("invalid city identifier").WithError(err).
			WithDetails("Pass an article URL such as https://en.wikipedia.org/wiki/Bautzen or an entity id such as Q14819")
	case errors.IsMalformed(err):
		return NewWarning("data integrity warning: a source returned a response that could not be read").WithError(err).
			WithDetails("The response was not retried; the comparison would be incomplete")
	case errors.IsRateLimited(err):
		return NewError("source unavailable: rate limited").WithError(err).
			WithDetails("Lower rate_limit or try again later")
	case errors.IsSourceUnavailable(err):
		return NewError("source unavailable").WithError(err)
	case errors.Is(err, errors.ErrCredentialsRequired):
		return NewError("credentials required").WithError(err).
			WithDetails("Set TWINMAP_USERNAME and TWINMAP_PASSWORD (a bot password) or TWINMAP_TOKEN")
	case errors.Is(err, errors.ErrCredentialsInvalid):
		return NewError("login failed").WithError(err)
	case errors.IsNotFound(err):
		return NewError("not found").WithError(err)
	default:
		return NewError("error").WithError(err)
	}
}
