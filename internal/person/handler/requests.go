package handler

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"person-registry/internal/person/models"
	"person-registry/pkg/platform/validation"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 1000

	paramPage  = "_page"
	paramLimit = "_limit"

	msgAttribute = "attribute must be either name, surname, patronym, dateOfBirth, rnokpp, unzr, passportNumber, gender or id"
	msgPage      = "_page must be a positive integer"
	msgLimit     = "_limit must be an integer between 1 and 1000"
	msgEmptyBody = "at least one field must be provided"
)

// rule is the format check applied to one attribute's trimmed value.
type rule struct {
	check   func(string) bool
	message string
}

func tagRule(tag, message string) rule {
	return rule{
		check:   func(v string) bool { return validation.Check(v, tag) },
		message: message,
	}
}

var rules = map[models.Attribute]rule{
	models.AttrName:           tagRule("min=1,max=50", "Name must be between 1 and 50 characters"),
	models.AttrSurname:        tagRule("min=1,max=50", "Surname must be between 1 and 50 characters"),
	models.AttrPatronym:       tagRule("max=50", "Patronym must be less than 50 characters"),
	models.AttrDateOfBirth:    tagRule("datetime=2006-01-02", "Date of birth must be a valid date in YYYY-MM-DD format"),
	models.AttrRNOKPP:         tagRule("len=10", "RNOKPP must be 10 digits. Format: xxxxxxxxxx"),
	models.AttrUNZR:           tagRule("len=14", "UNZR must be 14 characters long. Format: xxxxxxxx-xxxxx"),
	models.AttrPassportNumber: tagRule("len=9", "Passport number must be 9 digits. Format: xxxxxxxxx"),
	models.AttrGender:         tagRule("oneof=male female", `gender must be either "male" or "female"`),
	models.AttrID: {
		check:   func(v string) bool { _, ok := positiveInt(v); return ok },
		message: "id must be a positive integer",
	},
}

// checkField validates *raw against attr's rule and replaces it with the
// sanitized value. A nil field is skipped unless required, in which case it
// is checked as empty.
func checkField(errs *validation.Errors, attr models.Attribute, raw **string, required bool) {
	if *raw == nil {
		if !required {
			return
		}
		empty := ""
		*raw = &empty
	}
	trimmed := strings.TrimSpace(**raw)
	r := rules[attr]
	if !r.check(trimmed) {
		errs.Add(attr.String(), trimmed, r.message)
		return
	}
	sanitized := validation.Escape(trimmed)
	*raw = &sanitized
}

// PersonFields are the writable person fields shared by create and update
// bodies. Absent fields decode as nil.
type PersonFields struct {
	Name           *string `json:"name"`
	Surname        *string `json:"surname"`
	Patronym       *string `json:"patronym"`
	DateOfBirth    *string `json:"dateOfBirth"`
	RNOKPP         *string `json:"rnokpp"`
	UNZR           *string `json:"unzr"`
	PassportNumber *string `json:"passportNumber"`
	Gender         *string `json:"gender"`
}

func (f *PersonFields) check(errs *validation.Errors, required bool) {
	checkField(errs, models.AttrName, &f.Name, required)
	checkField(errs, models.AttrSurname, &f.Surname, required)
	checkField(errs, models.AttrPatronym, &f.Patronym, false)
	checkField(errs, models.AttrDateOfBirth, &f.DateOfBirth, required)
	checkField(errs, models.AttrRNOKPP, &f.RNOKPP, required)
	checkField(errs, models.AttrUNZR, &f.UNZR, required)
	checkField(errs, models.AttrPassportNumber, &f.PassportNumber, required)
	checkField(errs, models.AttrGender, &f.Gender, required)
}

// CreatePersonRequest is the body of POST /person.
type CreatePersonRequest struct {
	PersonFields
}

// Validate checks every field, collecting all violations, and leaves the
// fields sanitized.
func (r *CreatePersonRequest) Validate() error {
	var errs validation.Errors
	r.check(&errs, true)
	return errs.Err()
}

// ToModel returns the person described by a validated request.
func (r *CreatePersonRequest) ToModel() *models.Person {
	p := &models.Person{
		Name:           *r.Name,
		Surname:        *r.Surname,
		DateOfBirth:    *r.DateOfBirth,
		RNOKPP:         *r.RNOKPP,
		UNZR:           *r.UNZR,
		PassportNumber: *r.PassportNumber,
		Gender:         *r.Gender,
	}
	if r.Patronym != nil && *r.Patronym != "" {
		v := *r.Patronym
		p.Patronym = &v
	}
	return p
}

// UpdatePersonRequest is the body of PUT /person/{attribute}/{value}.
type UpdatePersonRequest struct {
	PersonFields
}

// Validate checks the fields present and requires at least one.
func (r *UpdatePersonRequest) Validate() error {
	var errs validation.Errors
	r.check(&errs, false)
	if err := errs.Err(); err != nil {
		return err
	}
	if r.ToPatch().Empty() {
		errs.Add("body", "", msgEmptyBody)
	}
	return errs.Err()
}

// ToPatch returns the changes carried by a validated request.
func (r *UpdatePersonRequest) ToPatch() models.Patch {
	return models.Patch{
		Name:           r.Name,
		Surname:        r.Surname,
		Patronym:       r.Patronym,
		DateOfBirth:    r.DateOfBirth,
		RNOKPP:         r.RNOKPP,
		UNZR:           r.UNZR,
		PassportNumber: r.PassportNumber,
		Gender:         r.Gender,
	}
}

// AddressedUpdateRequest is the body of PUT /person, which names the target
// records alongside the changes.
type AddressedUpdateRequest struct {
	Attribute *string `json:"attribute"`
	Value     *string `json:"value"`
	UpdatePersonRequest

	address address
}

// Validate checks the address and the changes together.
func (r *AddressedUpdateRequest) Validate() error {
	var errs validation.Errors
	r.address = parseAddress(&errs, deref(r.Attribute), deref(r.Value))
	r.check(&errs, false)
	if err := errs.Err(); err != nil {
		return err
	}
	if r.ToPatch().Empty() {
		errs.Add("body", "", msgEmptyBody)
	}
	return errs.Err()
}

// address identifies the records an operation applies to.
type address struct {
	attribute models.Attribute
	value     string
}

// parseAddress validates an attribute name and a value for it. The value is
// checked with the attribute's own rule and returned sanitized so it matches
// stored values.
func parseAddress(errs *validation.Errors, rawAttr, rawValue string) address {
	rawAttr = strings.TrimSpace(rawAttr)
	attr, err := models.ParseAttribute(rawAttr)
	if err != nil {
		errs.Add("attribute", rawAttr, msgAttribute)
		return address{}
	}
	value := strings.TrimSpace(rawValue)
	r := rules[attr]
	if !r.check(value) {
		errs.Add(attr.String(), value, r.message)
		return address{}
	}
	if attr == models.AttrID {
		// "007" and "+7" name the same record as "7".
		n, _ := positiveInt(value)
		return address{attribute: attr, value: strconv.Itoa(n)}
	}
	return address{attribute: attr, value: validation.Escape(value)}
}

// ListPersonsQuery is the parsed query of GET /person.
type ListPersonsQuery struct {
	Page   int
	Limit  int
	Filter models.Filter
}

// Offset is the number of matching records skipped before the page.
func (q ListPersonsQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// parseListQuery reads pagination and exact-match filters from values.
// Empty filter values are ignored.
func parseListQuery(values url.Values) (ListPersonsQuery, error) {
	var errs validation.Errors
	q := ListPersonsQuery{Page: defaultPage, Limit: defaultLimit}

	rawPage := strings.TrimSpace(values.Get(paramPage))
	pageOK := true
	if rawPage != "" {
		q.Page, pageOK = positiveInt(rawPage)
		if !pageOK {
			errs.Add(paramPage, rawPage, msgPage)
		}
	}
	limitOK := true
	if raw := strings.TrimSpace(values.Get(paramLimit)); raw != "" {
		q.Limit, limitOK = positiveInt(raw)
		if !limitOK || q.Limit > maxLimit {
			limitOK = false
			errs.Add(paramLimit, raw, msgLimit)
		}
	}
	// The offset (page-1)*limit must fit in an int.
	if pageOK && limitOK && q.Page-1 > math.MaxInt/q.Limit {
		errs.Add(paramPage, rawPage, msgPage)
	}

	for _, attr := range models.FilterAttributes {
		raw := strings.TrimSpace(values.Get(attr.String()))
		if raw == "" {
			continue
		}
		r := rules[attr]
		if !r.check(raw) {
			errs.Add(attr.String(), raw, r.message)
			continue
		}
		q.Filter = append(q.Filter, models.Condition{Attribute: attr, Value: validation.Escape(raw)})
	}

	if err := errs.Err(); err != nil {
		return ListPersonsQuery{}, err
	}
	return q, nil
}

func positiveInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
