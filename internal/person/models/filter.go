package models

// Condition is one exact-match predicate.
type Condition struct {
	Attribute Attribute
	Value     string
}

// Filter is a conjunction of exact-match conditions. An empty filter matches
// every person.
type Filter []Condition

// Matches reports whether p satisfies every condition.
func (f Filter) Matches(p *Person) bool {
	for _, c := range f {
		v, ok := p.Value(c.Attribute)
		if !ok || v != c.Value {
			return false
		}
	}
	return true
}

// Patch holds the fields to change in an update. Nil fields are left as is.
type Patch struct {
	Name           *string
	Surname        *string
	Patronym       *string
	DateOfBirth    *string
	RNOKPP         *string
	UNZR           *string
	PassportNumber *string
	Gender         *string
}

// Assignment is one column change produced by a Patch.
type Assignment struct {
	Attribute Attribute
	Value     string
}

// Assignments returns the set fields in a stable order.
func (p Patch) Assignments() []Assignment {
	fields := []struct {
		attr Attribute
		val  *string
	}{
		{AttrName, p.Name},
		{AttrSurname, p.Surname},
		{AttrPatronym, p.Patronym},
		{AttrDateOfBirth, p.DateOfBirth},
		{AttrRNOKPP, p.RNOKPP},
		{AttrUNZR, p.UNZR},
		{AttrPassportNumber, p.PassportNumber},
		{AttrGender, p.Gender},
	}
	out := make([]Assignment, 0, len(fields))
	for _, f := range fields {
		if f.val != nil {
			out = append(out, Assignment{Attribute: f.attr, Value: *f.val})
		}
	}
	return out
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Assignments()) == 0
}
