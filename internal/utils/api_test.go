package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateParam(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		d, present, errs := ParseDateParam(url.Values{"start": {"2024-01-05"}}, "start", nil)
		assert.True(t, present)
		assert.Empty(t, errs)
		assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), d)
	})

	t.Run("absent", func(t *testing.T) {
		_, present, errs := ParseDateParam(url.Values{}, "start", nil)
		assert.False(t, present)
		assert.Empty(t, errs)
	})

	t.Run("malformed", func(t *testing.T) {
		_, present, errs := ParseDateParam(url.Values{"end": {"01/05/2024"}}, "end", nil)
		assert.False(t, present)
		require.Contains(t, errs, "end")
		assert.Equal(t, []string{"invalid date format, use YYYY-MM-DD"}, errs["end"])
	})
}

func TestParseIntParam(t *testing.T) {
	params := url.Values{"hourMin": {"5"}, "hourMax": {"late"}}

	v, errs := ParseIntParam(params, "hourMin", 0, nil)
	assert.Equal(t, 5, v)
	assert.Empty(t, errs)

	v, errs = ParseIntParam(params, "hourMax", 23, errs)
	assert.Equal(t, 23, v)
	assert.Equal(t, []string{`Invalid field value for field "hourMax".`}, errs["hourMax"])

	v, _ = ParseIntParam(params, "missing", 7, nil)
	assert.Equal(t, 7, v)
}

func TestParseListParam(t *testing.T) {
	params, err := url.ParseQuery("payment=Cash&payment=Credit+Card&zone=&empty=")
	require.NoError(t, err)

	values, present := ParseListParam(params, "payment")
	assert.True(t, present)
	assert.Equal(t, []string{"Cash", "Credit Card"}, values)

	values, present = ParseListParam(params, "empty")
	assert.True(t, present)
	assert.Empty(t, values)
	assert.NotNil(t, values)

	values, present = ParseListParam(params, "absent")
	assert.False(t, present)
	assert.Nil(t, values)
}
