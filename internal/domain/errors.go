package domain

import (
	"fmt"
	"strings"
)

// Error types for the statement assembly engine. Everything except
// ErrWorkbookUnreadable and ErrUnknownKind is logged and elided by the
// consolidator.

// ErrInvalidFilename indicates a statement filename could not be decoded
// into a report kind and reference date.
type ErrInvalidFilename struct {
	Name   string
	Reason string
}

func (e *ErrInvalidFilename) Error() string {
	return fmt.Sprintf("invalid statement filename %q: %s", e.Name, e.Reason)
}

// ErrFileNotFound indicates the workbook path does not exist.
type ErrFileNotFound struct {
	File string
}

func (e *ErrFileNotFound) Error() string {
	return fmt.Sprintf("workbook not found: %s", e.File)
}

// ErrWorkbookUnreadable indicates the workbook exists but cannot be opened
// or parsed.
type ErrWorkbookUnreadable struct {
	File string
	Err  error
}

func (e *ErrWorkbookUnreadable) Error() string {
	return fmt.Sprintf("unreadable workbook %s: %v", e.File, e.Err)
}

func (e *ErrWorkbookUnreadable) Unwrap() error {
	return e.Err
}

// ErrSheetMissing indicates none of the candidate sheet names exist.
type ErrSheetMissing struct {
	File  string
	Sheet string
}

func (e *ErrSheetMissing) Error() string {
	return fmt.Sprintf("sheet %q not found in %s", e.Sheet, e.File)
}

// ErrSheetEmpty indicates a sheet with fewer than two rows.
type ErrSheetEmpty struct {
	File  string
	Sheet string
}

func (e *ErrSheetEmpty) Error() string {
	return fmt.Sprintf("sheet %q in %s has no data rows", e.Sheet, e.File)
}

// ErrEssentialColumnMissing indicates the header lacks required columns.
type ErrEssentialColumnMissing struct {
	File    string
	Sheet   string
	Columns []string
}

func (e *ErrEssentialColumnMissing) Error() string {
	return fmt.Sprintf("sheet %q in %s is missing essential columns: %s",
		e.Sheet, e.File, strings.Join(e.Columns, ", "))
}

// ErrUnknownKind indicates a report kind outside the closed set.
type ErrUnknownKind struct {
	Kind string
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown report kind: %s", e.Kind)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}
