// Package errors provides the typed errors used across catalogd.
// Callers check for error kinds with errors.Is against the sentinels
// below, or with the Is* helpers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Aliases for the standard library helpers so callers need a single import.
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Sentinel errors.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrFatalLoad indicates that the initial catalog load failed
	ErrFatalLoad = errors.New("fatal catalog load")

	// ErrSourceUnavailable indicates the catalog source could not be read
	ErrSourceUnavailable = errors.New("catalog source unavailable")

	// ErrMalformedRecord indicates a catalog definition could not be understood
	ErrMalformedRecord = errors.New("malformed catalog record")

	// ErrConnectorCreation indicates the registry refused to create a connector
	ErrConnectorCreation = errors.New("connector creation failed")

	// ErrUnsupportedSourceType indicates an unknown catalog source kind
	ErrUnsupportedSourceType = errors.New("unsupported catalog source type")

	// ErrNotReady indicates an operation that requires an initialized engine
	ErrNotReady = errors.New("not ready")
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

// FatalLoadError is returned when the initial full load fails. The process
// cannot usefully serve without an initial catalog set.
type FatalLoadError struct {
	Err error
}

// Error implements the error interface
func (e *FatalLoadError) Error() string {
	return fmt.Sprintf("initial catalog load failed: %v", e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FatalLoadError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FatalLoadError) Is(target error) bool {
	return target == ErrFatalLoad
}

// SourceUnavailableError reports an I/O failure while reading a catalog source.
type SourceUnavailableError struct {
	Source    string // "file", "database"
	Operation string // "read", "open", "query", "scan"
	Location  string
	Err       error
}

// Error implements the error interface
func (e *SourceUnavailableError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s source unavailable during %s of %s: %v", e.Source, e.Operation, e.Location, e.Err)
	}
	return fmt.Sprintf("%s source unavailable during %s: %v", e.Source, e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *SourceUnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

// NewSourceUnavailableError creates a new SourceUnavailableError
func NewSourceUnavailableError(source, operation, location string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{
		Source:    source,
		Operation: operation,
		Location:  location,
		Err:       err,
	}
}

// MalformedRecordError reports a catalog definition that cannot be turned
// into a record, such as a property file without connector.name.
type MalformedRecordError struct {
	Catalog  string
	Location string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	var b strings.Builder
	b.WriteString("malformed catalog")
	if e.Catalog != "" {
		fmt.Fprintf(&b, " %s", e.Catalog)
	}
	if e.Location != "" {
		fmt.Fprintf(&b, " (%s)", e.Location)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap implements errors.Unwrap
func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

// NewMalformedRecordError creates a new MalformedRecordError
func NewMalformedRecordError(catalog, location, message string, err error) *MalformedRecordError {
	return &MalformedRecordError{
		Catalog:  catalog,
		Location: location,
		Message:  message,
		Err:      err,
	}
}

// ConnectorCreationError reports a connector the registry could not create.
type ConnectorCreationError struct {
	Catalog   string
	Connector string
	Err       error
}

// Error implements the error interface
func (e *ConnectorCreationError) Error() string {
	return fmt.Sprintf("failed to create connector %s for catalog %s: %v", e.Connector, e.Catalog, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *ConnectorCreationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConnectorCreationError) Is(target error) bool {
	return target == ErrConnectorCreation
}

// UnsupportedSourceTypeError is returned by source selection for unknown kinds.
type UnsupportedSourceTypeError struct {
	Type string
}

// Error implements the error interface
func (e *UnsupportedSourceTypeError) Error() string {
	return fmt.Sprintf("unsupported catalog source type %q", e.Type)
}

// Is implements errors.Is support
func (e *UnsupportedSourceTypeError) Is(target error) bool {
	return target == ErrUnsupportedSourceType
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", "properties", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
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
	Operation string // "read", "write", "open", "close", "watch"
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
	Operation string // "create", "drop", "close"
	Resource  string // "connector", "catalog"
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

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsFatalLoad checks if an error came from a failed initial load
func IsFatalLoad(err error) bool {
	return errors.Is(err, ErrFatalLoad)
}

// IsSourceUnavailable checks if an error is a source I/O failure
func IsSourceUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}

// IsMalformedRecord checks if an error is a malformed catalog definition
func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsConnectorCreation checks if an error is a connector creation failure
func IsConnectorCreation(err error) bool {
	return errors.Is(err, ErrConnectorCreation)
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

// WrapFatalLoad wraps an error as a FatalLoadError
func WrapFatalLoad(err error) error {
	if err == nil {
		return nil
	}
	return &FatalLoadError{Err: err}
}

// WrapConnectorCreation wraps a registry failure as a ConnectorCreationError
func WrapConnectorCreation(catalog, connector string, err error) error {
	if err == nil {
		return nil
	}
	return &ConnectorCreationError{Catalog: catalog, Connector: connector, Err: err}
}
