// Package validation checks forms against their validate tags and carries the
// per-field errors from the services to the HTTP layer.
package validation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalid = errors.New("validation")

// Errors maps a form field name to the message shown next to it.
type Errors map[string]string

func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Err returns nil when no field failed.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return &Error{Fields: e}
}

type Error struct {
	Fields Errors
}

func (e *Error) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

func (e *Error) Unwrap() error { return ErrInvalid }

// FieldsOf extracts the field errors from err, if any.
func FieldsOf(err error) (Errors, bool) {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Fields, true
	}
	return nil, false
}
