// Package cerr provides the structured error type shared by every layer
// of the schema-update engine, from expression validation to the
// per-grain upgrade state machine.
package cerr

import (
	"errors"
	"fmt"
)

// Category distinguishes schema-time failures (raised while building or
// validating the in-memory model) from upgrade-time failures (raised
// while driving DDL against a live database).
type Category string

const (
	// CategorySchema corresponds to the original CelestaParseException:
	// a validation failure that aborts the whole run before any grain
	// is touched.
	CategorySchema Category = "SCHEMA"

	// CategoryUpgrade corresponds to the original CelestaException
	// raised while a single grain is being upgraded. It is caught by
	// the updater, recorded against that grain's status row, and does
	// not necessarily abort other grains.
	CategoryUpgrade Category = "UPGRADE"
)

// Error codes reported to callers and stored in celesta.grains.message.
const (
	CodeUnresolvedField          = "UNRESOLVED_FIELD"
	CodeAmbiguousField           = "AMBIGUOUS_FIELD"
	CodeTypeMismatch             = "TYPE_MISMATCH"
	CodeDuplicateColumn          = "DUPLICATE_COLUMN"
	CodeUnknownColumn            = "UNKNOWN_COLUMN"
	CodeMissingPK                = "MISSING_PK"
	CodeFKReferencedColumnsNotPK = "FK_REFERENCED_COLUMNS_NOT_PK"
	CodeCyclicGrainDependency    = "CYCLIC_GRAIN_DEPENDENCY"
	CodeVersionInconsistent      = "VERSION_INCONSISTENT"
	CodeVersionDowngrade         = "VERSION_DOWNGRADE"
	CodeIllegalState             = "ILLEGAL_STATE"

	CodeNonEmptyDB      = "NON_EMPTY_DB"
	CodeUnexpectedState = "UNEXPECTED_STATE"
	CodeDDLFailed       = "DDL_FAILED"
)

// Error is the single domain error kind used throughout the engine. It
// always carries a category and a code so callers can branch on
// GetCode/GetCategory instead of parsing the message.
type Error struct {
	Category Category
	Code     string
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same category and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a schema/upgrade error with no formatting.
func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

// Newf creates a schema/upgrade error with a formatted message.
func Newf(category Category, code, format string, args ...interface{}) *Error {
	return &Error{Category: category, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error that carries an underlying cause.
func Wrap(category Category, code, message string, cause error) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: cause}
}

// Schema is a convenience constructor for CategorySchema errors.
func Schema(code, format string, args ...interface{}) *Error {
	return Newf(CategorySchema, code, format, args...)
}

// Upgrade is a convenience constructor for CategoryUpgrade errors.
func Upgrade(code, format string, args ...interface{}) *Error {
	return Newf(CategoryUpgrade, code, format, args...)
}

// UpgradeWrap wraps an adaptor-level failure as a CategoryUpgrade error.
func UpgradeWrap(code, message string, cause error) *Error {
	return Wrap(CategoryUpgrade, code, message, cause)
}

// GetCode extracts the error code from an error chain, or "" if err is
// not (and does not wrap) an *Error.
func GetCode(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// GetCategory extracts the error category from an error chain.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// IsSchema reports whether err (or something in its chain) is a
// CategorySchema error.
func IsSchema(err error) bool {
	return GetCategory(err) == CategorySchema
}
