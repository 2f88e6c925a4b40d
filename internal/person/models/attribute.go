package models

import (
	"fmt"
	"strconv"
	"time"
)

// Attribute names a Person field that may be used to address records. It is a
// closed set: values are only produced by ParseAttribute or the constants
// below, and each maps to a fixed column.
type Attribute string

const (
	AttrID             Attribute = "id"
	AttrName           Attribute = "name"
	AttrSurname        Attribute = "surname"
	AttrPatronym       Attribute = "patronym"
	AttrDateOfBirth    Attribute = "dateOfBirth"
	AttrRNOKPP         Attribute = "rnokpp"
	AttrUNZR           Attribute = "unzr"
	AttrPassportNumber Attribute = "passportNumber"
	AttrGender         Attribute = "gender"
)

type attributeDef struct {
	column string
	// arg converts a validated value into the driver argument for column.
	arg func(string) (any, error)
}

var attributes = map[Attribute]attributeDef{
	AttrID:             {column: "id", arg: parseIDArg},
	AttrName:           {column: "name", arg: stringArg},
	AttrSurname:        {column: "surname", arg: stringArg},
	AttrPatronym:       {column: "patronym", arg: stringArg},
	AttrDateOfBirth:    {column: "date_of_birth", arg: parseDateArg},
	AttrRNOKPP:         {column: "rnokpp", arg: stringArg},
	AttrUNZR:           {column: "unzr", arg: stringArg},
	AttrPassportNumber: {column: "passport_number", arg: stringArg},
	AttrGender:         {column: "gender", arg: stringArg},
}

// Attributes lists every addressable attribute in display order.
var Attributes = []Attribute{
	AttrName, AttrSurname, AttrPatronym, AttrDateOfBirth, AttrRNOKPP,
	AttrUNZR, AttrPassportNumber, AttrGender, AttrID,
}

// FilterAttributes lists the attributes accepted as list filters.
var FilterAttributes = []Attribute{
	AttrName, AttrSurname, AttrPatronym, AttrDateOfBirth, AttrRNOKPP,
	AttrUNZR, AttrPassportNumber, AttrGender,
}

// ErrUnknownAttribute is returned by ParseAttribute for names outside the set.
var ErrUnknownAttribute = fmt.Errorf("unknown attribute")

// ParseAttribute maps a client-supplied name onto the closed set.
func ParseAttribute(s string) (Attribute, error) {
	a := Attribute(s)
	if _, ok := attributes[a]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAttribute, s)
	}
	return a, nil
}

func (a Attribute) String() string { return string(a) }

// Valid reports whether a belongs to the closed set.
func (a Attribute) Valid() bool {
	_, ok := attributes[a]
	return ok
}

// Column returns the storage column backing a. It panics for values outside
// the set, which can only be produced by an unchecked conversion.
func (a Attribute) Column() string {
	def, ok := attributes[a]
	if !ok {
		panic(fmt.Sprintf("models: column requested for unknown attribute %q", string(a)))
	}
	return def.column
}

// Arg converts value into the typed driver argument for a's column.
func (a Attribute) Arg(value string) (any, error) {
	def, ok := attributes[a]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAttribute, string(a))
	}
	return def.arg(value)
}

// Mutable reports whether a may be changed by an update.
func (a Attribute) Mutable() bool {
	return a != AttrID && a.Valid()
}

func stringArg(v string) (any, error) { return v, nil }

func parseIDArg(v string) (any, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	return id, nil
}

func parseDateArg(v string) (any, error) {
	t, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("parse date: %w", err)
	}
	return t, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
