package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "person-registry/pkg/domain-errors"
)

func TestCheck(t *testing.T) {
	assert.True(t, Check("Ann", "min=1,max=50"))
	assert.False(t, Check("", "min=1,max=50"))
	assert.True(t, Check("Олександр", "min=1,max=9"), "length counts characters, not bytes")
	assert.True(t, Check("1990-01-01", "datetime=2006-01-02"))
	assert.False(t, Check("1990-02-30", "datetime=2006-01-02"))
	assert.False(t, Check("01/01/1990", "datetime=2006-01-02"))
	assert.True(t, Check("female", "oneof=male female"))
	assert.False(t, Check("other", "oneof=male female"))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Ann", Sanitize("  Ann \n"))
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;&#x2F;script&gt;", Sanitize("<script>alert(1)</script>"))
	assert.Equal(t, "O&#x27;Brien &amp; Sons", Sanitize("O'Brien & Sons"))
	assert.Equal(t, "&quot;q&quot; &#x5C; &#96;", Escape("\"q\" \\ `"))
	assert.Equal(t, "01011990-1234X", Sanitize("01011990-1234X"))
}

func TestErrors(t *testing.T) {
	var errs Errors
	require.NoError(t, errs.Err())

	errs.Add("name", "", "Name must be between 1 and 50 characters")
	errs.Add("gender", "x", `gender must be either "male" or "female"`)

	err := errs.Err()
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeValidation))

	de, ok := dErrors.From(err)
	require.True(t, ok)
	assert.Len(t, de.Details, 2)
}
