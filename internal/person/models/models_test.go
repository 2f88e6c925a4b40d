package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"person-registry/pkg/platform/sentinel"
)

func ptr(s string) *string { return &s }

func TestParseAttribute(t *testing.T) {
	for _, a := range Attributes {
		got, err := ParseAttribute(string(a))
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := ParseAttribute("password; DROP TABLE persons")
	require.ErrorIs(t, err, ErrUnknownAttribute)

	_, err = ParseAttribute("date_of_birth")
	require.ErrorIs(t, err, ErrUnknownAttribute, "column names are not attribute names")
}

func TestAttributeColumnAndArg(t *testing.T) {
	assert.Equal(t, "passport_number", AttrPassportNumber.Column())
	assert.Equal(t, "date_of_birth", AttrDateOfBirth.Column())

	id, err := AttrID.Arg("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	dob, err := AttrDateOfBirth.Arg("1990-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 1, 31, 0, 0, 0, 0, time.UTC), dob)

	_, err = AttrID.Arg("abc")
	require.Error(t, err)

	assert.Panics(t, func() { Attribute("bogus").Column() })
	assert.False(t, AttrID.Mutable())
	assert.True(t, AttrGender.Mutable())
}

func TestFilterMatches(t *testing.T) {
	p := &Person{ID: 7, Name: "Ann", Surname: "Lee", Gender: GenderFemale, DateOfBirth: "1990-01-01"}

	assert.True(t, Filter{}.Matches(p))
	assert.True(t, Filter{{AttrName, "Ann"}, {AttrGender, "female"}}.Matches(p))
	assert.True(t, Filter{{AttrID, "7"}}.Matches(p))
	assert.False(t, Filter{{AttrName, "ann"}}.Matches(p), "matching is exact")
	assert.False(t, Filter{{AttrPatronym, ""}}.Matches(p), "absent patronym never matches")
}

func TestPatchApply(t *testing.T) {
	p := &Person{Name: "Ann", Patronym: ptr("Ivanivna"), Gender: GenderFemale}

	patch := Patch{Surname: ptr("Kim"), Patronym: ptr("")}
	require.False(t, patch.Empty())
	require.True(t, Patch{}.Empty())

	p.Apply(patch)
	assert.Equal(t, "Ann", p.Name)
	assert.Equal(t, "Kim", p.Surname)
	assert.Nil(t, p.Patronym, "empty patronym clears the field")

	assignments := Patch{Gender: ptr("male"), Name: ptr("Bo")}.Assignments()
	require.Len(t, assignments, 2)
	assert.Equal(t, AttrName, assignments[0].Attribute, "assignments follow field order")
}

func TestDuplicateError(t *testing.T) {
	err := &DuplicateError{Attributes: []Attribute{AttrRNOKPP, AttrUNZR}}
	assert.Equal(t, "duplicate rnokpp, unzr", err.Error())
	assert.True(t, errors.Is(err, sentinel.ErrConflict))
}
