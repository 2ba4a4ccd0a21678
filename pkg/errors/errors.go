// Unified error handling for the toolpath simulator
//
// Copyright (C) 2026  Luthiers Toolbox Project
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	"fmt"
	"runtime"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Configuration errors
	ErrConfigRead       ErrorCode = "CONFIG_READ"
	ErrConfigParse      ErrorCode = "CONFIG_PARSE"
	ErrConfigValidation ErrorCode = "CONFIG_VALIDATION"
	ErrProfileUnknown   ErrorCode = "PROFILE_UNKNOWN"

	// Input errors
	ErrInputRead   ErrorCode = "INPUT_READ"
	ErrInputIntent ErrorCode = "INPUT_INTENT"

	// Output errors
	ErrExportWrite ErrorCode = "EXPORT_WRITE"

	// Server errors
	ErrServerBind  ErrorCode = "SERVER_BIND"
	ErrServerState ErrorCode = "SERVER_STATE"

	// Runtime errors
	ErrRuntime ErrorCode = "RUNTIME"
)

// SimError is the unified error type for the simulator host
type SimError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the file involved (if any)
	Path string

	// Line is the input line number (if applicable)
	Line int

	// Err wraps the underlying error
	Err error

	// Context provides additional context
	Context map[string]interface{}
}

// Error implements the error interface
func (e *SimError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Path, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SimError) Unwrap() error {
	return e.Err
}

// SetPath sets the file path
func (e *SimError) SetPath(path string) *SimError {
	e.Path = path
	return e
}

// SetLine sets the input line number
func (e *SimError) SetLine(line int) *SimError {
	e.Line = line
	return e
}

// SetContext adds additional context
func (e *SimError) SetContext(key string, value interface{}) *SimError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new SimError
func New(code ErrorCode, message string) *SimError {
	return &SimError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *SimError {
	return &SimError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Config errors

// ConfigReadError creates an error for an unreadable config file
func ConfigReadError(path string, err error) *SimError {
	return Wrap(err, ErrConfigRead, "cannot read config file").SetPath(path)
}

// ConfigParseError creates an error for invalid config syntax
func ConfigParseError(path string, err error) *SimError {
	return Wrap(err, ErrConfigParse, "cannot parse config file").SetPath(path)
}

// ConfigValidationError creates an error for a config value out of range
func ConfigValidationError(field, reason string) *SimError {
	return New(ErrConfigValidation, fmt.Sprintf("%s: %s", field, reason))
}

// ProfileUnknownError creates an error for a profile name with no entry
func ProfileUnknownError(kind, name string) *SimError {
	return New(ErrProfileUnknown, fmt.Sprintf("unknown %s profile '%s'", kind, name)).
		SetContext("kind", kind).
		SetContext("name", name)
}

// Input errors

// InputReadError creates an error for an unreadable program file
func InputReadError(path string, err error) *SimError {
	return Wrap(err, ErrInputRead, "cannot read input").SetPath(path)
}

// IntentDecodeError creates an error for malformed move-intent JSON
func IntentDecodeError(err error) *SimError {
	return Wrap(err, ErrInputIntent, "cannot decode move intents")
}

// Output errors

// ExportError creates an error for a failed report export
func ExportError(err error) *SimError {
	return Wrap(err, ErrExportWrite, "cannot write export")
}

// Server errors

// ServerBindError creates an error for a failed listen
func ServerBindError(addr string, err error) *SimError {
	return Wrap(err, ErrServerBind, fmt.Sprintf("cannot listen on %s", addr))
}

// ServerStateError creates an error for an invalid server lifecycle call
func ServerStateError(message string) *SimError {
	return New(ErrServerState, message)
}

// RuntimeError creates a general runtime error
func RuntimeError(message string) *SimError {
	return New(ErrRuntime, message)
}

// Is checks whether err carries the given code
func Is(err error, code ErrorCode) bool {
	if simErr, ok := err.(*SimError); ok {
		return simErr.Code == code
	}
	return false
}

// IsConfig reports whether err is any configuration error
func IsConfig(err error) bool {
	simErr, ok := err.(*SimError)
	if !ok {
		return false
	}
	switch simErr.Code {
	case ErrConfigRead, ErrConfigParse, ErrConfigValidation, ErrProfileUnknown:
		return true
	}
	return false
}

// IsInput reports whether err is any input error
func IsInput(err error) bool {
	simErr, ok := err.(*SimError)
	if !ok {
		return false
	}
	switch simErr.Code {
	case ErrInputRead, ErrInputIntent:
		return true
	}
	return false
}

// RecoverPanic safely recovers from panic and converts to error
func RecoverPanic() *SimError {
	if r := recover(); r != nil {
		var err error
		switch x := r.(type) {
		case string:
			err = RuntimeError(fmt.Sprintf("panic: %s", x))
		case runtime.Error:
			err = RuntimeError(x.Error())
		case error:
			err = RuntimeError(x.Error())
		default:
			err = RuntimeError(fmt.Sprintf("panic: %v", x))
		}
		return err.(*SimError)
	}
	return nil
}
