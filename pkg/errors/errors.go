// Package errors provides custom error types for the twinmap system.
// These errors enable programmatic error checking across the comparison
// pipeline: bad identifiers, remote fetch failures and write-back failures.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is is an alias for the standard library errors.Is.
var Is = errors.Is

// As is an alias for the standard library errors.As.
var As = errors.As

// Join is an alias for the standard library errors.Join.
var Join = errors.Join

// Common sentinel errors for the twinmap system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidIdentifier indicates a city identifier outside the expected namespace
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrSourceUnavailable indicates that a remote source could not be reached
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedResponse indicates that a remote source answered with unusable data
	ErrMalformedResponse = errors.New("malformed response")

	// ErrRateLimited indicates that the remote rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrCredentialsRequired indicates that write credentials are missing
	ErrCredentialsRequired = errors.New("credentials required")

	// ErrCredentialsInvalid indicates that write credentials were rejected
	ErrCredentialsInvalid = errors.New("credentials invalid")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// InvalidIdentifierError is returned when a city identifier is not a
// well-formed absolute URL in the namespace a query expects.
type InvalidIdentifierError struct {
	Value  string
	Reason string
}

// Error implements the error interface
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid city identifier %q: %s", e.Value, e.Reason)
}

// Is implements errors.Is support
func (e *InvalidIdentifierError) Is(target error) bool {
	return target == ErrInvalidIdentifier || target == ErrInvalidInput
}

// NewInvalidIdentifierError creates a new InvalidIdentifierError
func NewInvalidIdentifierError(value, reason string) *InvalidIdentifierError {
	return &InvalidIdentifierError{Value: value, Reason: reason}
}

// FetchKind classifies a remote fetch failure.
type FetchKind string

const (
	// FetchNetwork covers transport failures and server-side errors.
	FetchNetwork FetchKind = "NETWORK"
	// FetchTimeout covers deadlines and client timeouts.
	FetchTimeout FetchKind = "TIMEOUT"
	// FetchMalformedResponse covers bodies that cannot be decoded.
	FetchMalformedResponse FetchKind = "MALFORMED_RESPONSE"
	// FetchRateLimited covers 429 responses and throttling.
	FetchRateLimited FetchKind = "RATE_LIMITED"
)

// Retryable reports whether failures of this kind may succeed on retry.
func (k FetchKind) Retryable() bool {
	switch k {
	case FetchNetwork, FetchTimeout, FetchRateLimited:
		return true
	default:
		return false
	}
}

// FetchError represents a failed read from a remote source
type FetchError struct {
	Kind       FetchKind
	Source     string // "graph" or "article"
	Endpoint   string
	StatusCode int
	Detail     string
	RetryAfter time.Duration // server requested delay, zero when absent
	Err        error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	var sb strings.Builder
	sb.WriteString("fetch ")
	sb.WriteString(string(e.Kind))
	if e.Source != "" {
		sb.WriteString(" from ")
		sb.WriteString(e.Source)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	switch e.Kind {
	case FetchRateLimited:
		return target == ErrRateLimited || target == ErrSourceUnavailable
	case FetchTimeout:
		return target == ErrTimeout || target == ErrSourceUnavailable
	case FetchNetwork:
		return target == ErrSourceUnavailable
	case FetchMalformedResponse:
		return target == ErrMalformedResponse
	}
	return false
}

// Retryable reports whether the failure may succeed on retry.
func (e *FetchError) Retryable() bool {
	return e.Kind.Retryable()
}

// NewFetchError creates a new FetchError
func NewFetchError(kind FetchKind, source, detail string, err error) *FetchError {
	return &FetchError{
		Kind:   kind,
		Source: source,
		Detail: detail,
		Err:    err,
	}
}

// RetryError is returned once a retryable failure persisted through
// every allowed attempt.
type RetryError struct {
	Attempts int
	Err      error
}

// Error implements the error interface
func (e *RetryError) Error() string {
	return fmt.Sprintf("source unavailable after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RetryError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *RetryError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// SourceError scopes a failure to one side of a comparison.
type SourceError struct {
	Source string
	City   string
	Err    error
}

// Error implements the error interface
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s source failed for %s: %v", e.Source, e.City, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SourceError) Unwrap() error {
	return e.Err
}

// APIError represents an error reported by the graph write API
type APIError struct {
	Service    string
	StatusCode int
	Code       string // API error code, e.g. "badtoken"
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("API error from %s (%s): %s", e.Service, e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
	}
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 || e.Code == "ratelimited" || e.Code == "maxlag" {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrSourceUnavailable
	}
	return false
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "html", "date", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "build", "submit", "fetch"
	Resource  string // "request", "query", "claim", "reference"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents a failed login against the write API
type AuthenticationError struct {
	Service string
	Method  string // "bot_password", "oauth"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support. Without a wrapped cause the
// credentials count as rejected.
func (e *AuthenticationError) Is(target error) bool {
	return e.Err == nil && target == ErrCredentialsInvalid
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(service, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Service: service,
		Method:  method,
		Message: message,
		Err:     err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsInvalidIdentifier checks if an error rejects a city identifier
func IsInvalidIdentifier(err error) bool {
	return errors.Is(err, ErrInvalidIdentifier)
}

// IsSourceUnavailable checks if a remote source could not be reached
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsMalformed checks if a remote source returned unusable data
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedResponse)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsRetryable reports whether err carries a retryable FetchError.
func IsRetryable(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Retryable()
	}
	return false
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
