package yamlfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_EmptyStringIsOkayButNil(t *testing.T) {
	ts, ok := parseDate("")
	assert.True(t, ok)
	assert.Nil(t, ts)
}

func TestParseDate_AcceptsEachLayout(t *testing.T) {
	inputs := []string{"2026-01-10T12:00:00Z", "2026-01-10T12:00:00", "2026-01-10"}
	for _, in := range inputs {
		ts, ok := parseDate(in)
		require.True(t, ok, "expected %q to parse", in)
		require.NotNil(t, ts)
		assert.Equal(t, 2026, ts.Year())
	}
}

func TestParseDate_UnparseableReturnsFalse(t *testing.T) {
	_, ok := parseDate("not-a-date")
	assert.False(t, ok)
}

func TestFormatDate_NilReturnsEmptyString(t *testing.T) {
	assert.Equal(t, "", formatDate(nil))
}

func TestFormatDate_RoundTripsThroughParseDate(t *testing.T) {
	ts, ok := parseDate("2026-03-05T08:30:00Z")
	require.True(t, ok)
	formatted := formatDate(ts)

	reparsed, ok := parseDate(formatted)
	require.True(t, ok)
	assert.True(t, ts.Equal(*reparsed))
}
