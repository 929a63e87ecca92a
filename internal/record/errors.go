package record

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned for a collection that has no schema.
var ErrUnknownKind = errors.New("unknown record kind")

// MalformedRecordError reports raw input whose structure does not match the
// documented JSON shape of its collection.
type MalformedRecordError struct {
	Kind   Kind
	ID     string
	Field  string
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("malformed %s record %q", e.Kind, e.ID)
	if e.Field != "" {
		msg += fmt.Sprintf(" (field %q)", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }
