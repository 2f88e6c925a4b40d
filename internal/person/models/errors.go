package models

import (
	"strings"

	"person-registry/pkg/platform/sentinel"
)

// DuplicateError reports that a write collided with an existing person on one
// or more unique attributes.
type DuplicateError struct {
	Attributes []Attribute
}

func (e *DuplicateError) Error() string {
	names := make([]string, len(e.Attributes))
	for i, a := range e.Attributes {
		names[i] = string(a)
	}
	return "duplicate " + strings.Join(names, ", ")
}

func (e *DuplicateError) Unwrap() error { return sentinel.ErrConflict }

// UniqueAttributes are backed by unique constraints.
var UniqueAttributes = []Attribute{AttrRNOKPP, AttrUNZR, AttrPassportNumber}
