package cerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	err := New(CategorySchema, CodeUnresolvedField, "column x not found")
	expected := "[SCHEMA:UNRESOLVED_FIELD] column x not found"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(CategoryUpgrade, CodeDDLFailed, "create table failed", cause)
	expected := "[UPGRADE:DDL_FAILED] create table failed: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(CategoryUpgrade, CodeDDLFailed, "wrapped", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestError_Is(t *testing.T) {
	err1 := New(CategorySchema, CodeAmbiguousField, "first")
	err2 := New(CategorySchema, CodeAmbiguousField, "second")
	err3 := New(CategorySchema, CodeUnresolvedField, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category/code should match")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match")
	}
}

func TestGetCodeAndCategory(t *testing.T) {
	err := Schema(CodeMissingPK, "table %s has no primary key", "t1")
	if GetCode(err) != CodeMissingPK {
		t.Errorf("GetCode = %q, want %q", GetCode(err), CodeMissingPK)
	}
	if GetCategory(err) != CategorySchema {
		t.Errorf("GetCategory = %q, want %q", GetCategory(err), CategorySchema)
	}
	if !IsSchema(err) {
		t.Error("IsSchema should be true for a CategorySchema error")
	}

	wrapped := fmt.Errorf("during load: %w", err)
	if GetCode(wrapped) != CodeMissingPK {
		t.Error("GetCode should see through fmt.Errorf wrapping")
	}
}

func TestGetCode_NonDomainError(t *testing.T) {
	if GetCode(errors.New("plain error")) != "" {
		t.Error("GetCode of a non-domain error should be empty")
	}
	if GetCategory(errors.New("plain error")) != "" {
		t.Error("GetCategory of a non-domain error should be empty")
	}
}
