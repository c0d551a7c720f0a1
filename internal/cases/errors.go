package cases

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the engine. The HTTP layer maps these onto
// response codes; everything else is treated as a storage fault.
var (
	// ErrNotFound indicates no case exists with the requested ID.
	ErrNotFound = errors.New("cases: not found")
	// ErrDedupAmbiguous indicates more than one existing case matched a
	// candidate's dedup predicate, a data-integrity condition.
	ErrDedupAmbiguous = errors.New("cases: dedup predicate matched multiple cases")
	// ErrUpdateMissed indicates an update statement affected a number of
	// rows other than one.
	ErrUpdateMissed = errors.New("cases: update missed")
	// ErrRegistryConflict indicates a case type name was registered twice.
	ErrRegistryConflict = errors.New("cases: type already registered")
)

// SchemaViolationError reports a report entry that does not conform to the
// case type's required fields.
type SchemaViolationError struct {
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required field: %s", e.Field)
	}
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// UnknownReportTypeError reports a sub-report naming an unregistered type.
type UnknownReportTypeError struct {
	Name string
}

func (e *UnknownReportTypeError) Error() string {
	return fmt.Sprintf("unrecognized report type: %s", e.Name)
}

// BadUpdateError reports an analyst update naming a datum or value the
// case type does not support.
type BadUpdateError struct {
	Datum  string
	Reason string
}

func (e *BadUpdateError) Error() string {
	return fmt.Sprintf("cannot update %s: %s", e.Datum, e.Reason)
}
