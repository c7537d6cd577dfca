package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for orchestration failures
type ErrorCode string

const (
	// ConfigInvalid indicates the configuration file or an override failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InputTooLarge indicates a source or diff exceeded analysis.maxFileBytes
	InputTooLarge ErrorCode = "INPUT_TOO_LARGE"
	// FileNotFound indicates an input file could not be read
	FileNotFound ErrorCode = "FILE_NOT_FOUND"
	// DiffUnparseable indicates the diff text is not a unified diff
	DiffUnparseable ErrorCode = "DIFF_UNPARSEABLE"
	// StorageUnavailable indicates the snapshot database could not be opened or written
	StorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	// ConsumerScanFailed indicates the consumer scanner could not walk its root
	ConsumerScanFailed ErrorCode = "CONSUMER_SCAN_FAILED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditConfig suggests changing a configuration value
	EditConfig FixActionType = "edit-config"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	Setting     string        `json:"setting,omitempty"`
}

// Error represents an apiguard error with code, message, and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates an Error carrying the default suggested fixes for its code
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Wrap creates an Error around an underlying cause
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// IsCode reports whether err is, or wraps, an Error with the given code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the first Error in err's chain, or InternalError
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	ConfigInvalid: {
		{
			Type:        RunCommand,
			Command:     "apiguard init --force",
			Description: "Rewrite .apiguard/config.toml with defaults",
		},
	},
	InputTooLarge: {
		{
			Type:        EditConfig,
			Setting:     "analysis.maxFileBytes",
			Description: "Raise the per-file size limit",
		},
	},
	StorageUnavailable: {
		{
			Type:        EditConfig,
			Setting:     "storage.enabled",
			Description: "Disable snapshot storage or point storage.path at a writable location",
		},
	},
	ConsumerScanFailed: {
		{
			Type:        EditConfig,
			Setting:     "consumers.root",
			Description: "Point the consumer scanner at an existing directory",
		},
	},
	DiffUnparseable: {
		{
			Type:        RunCommand,
			Command:     "git diff --no-color --unified=3",
			Safe:        true,
			Description: "Produce a plain unified diff",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
