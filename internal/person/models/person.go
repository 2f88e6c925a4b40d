package models

import "time"

// Gender values accepted for a person.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// DateLayout is the wire and storage format of DateOfBirth.
const DateLayout = "2006-01-02"

// Person is a natural person registered under national identifiers.
type Person struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Surname        string    `json:"surname"`
	Patronym       *string   `json:"patronym"`
	DateOfBirth    string    `json:"dateOfBirth"`
	RNOKPP         string    `json:"rnokpp"`
	UNZR           string    `json:"unzr"`
	PassportNumber string    `json:"passportNumber"`
	Gender         string    `json:"gender"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Value returns the stored value of attr as a string, the form used for
// equality matching.
func (p *Person) Value(attr Attribute) (string, bool) {
	switch attr {
	case AttrID:
		return formatID(p.ID), true
	case AttrName:
		return p.Name, true
	case AttrSurname:
		return p.Surname, true
	case AttrPatronym:
		if p.Patronym == nil {
			return "", false
		}
		return *p.Patronym, true
	case AttrDateOfBirth:
		return p.DateOfBirth, true
	case AttrRNOKPP:
		return p.RNOKPP, true
	case AttrUNZR:
		return p.UNZR, true
	case AttrPassportNumber:
		return p.PassportNumber, true
	case AttrGender:
		return p.Gender, true
	}
	return "", false
}

// Apply copies every field set in patch onto p.
func (p *Person) Apply(patch Patch) {
	for _, a := range patch.Assignments() {
		switch a.Attribute {
		case AttrName:
			p.Name = a.Value
		case AttrSurname:
			p.Surname = a.Value
		case AttrPatronym:
			if a.Value == "" {
				p.Patronym = nil
			} else {
				v := a.Value
				p.Patronym = &v
			}
		case AttrDateOfBirth:
			p.DateOfBirth = a.Value
		case AttrRNOKPP:
			p.RNOKPP = a.Value
		case AttrUNZR:
			p.UNZR = a.Value
		case AttrPassportNumber:
			p.PassportNumber = a.Value
		case AttrGender:
			p.Gender = a.Value
		}
	}
}

// Page is one slice of a filtered listing together with the total number of
// matching persons.
type Page struct {
	Persons []*Person
	Total   int
}
