package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOfAndString(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	d := DateOf(time.Date(2024, time.March, 1, 23, 30, 0, 0, loc))
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 1}, d)
	assert.Equal(t, "2024-03-01", d.String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 5}, d)
	assert.Equal(t, time.Tuesday, d.Weekday())

	_, err = ParseDate("03/05/2024")
	assert.Error(t, err)
	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestInstanceKeyRoundTrip(t *testing.T) {
	d := Date{Year: 2024, Month: time.March, Day: 5}

	cases := []string{"r1", "routine_with_underscores", "a-b.c"}
	for _, id := range cases {
		key := EncodeInstanceKey(id, d)
		gotID, gotDate, err := DecodeInstanceKey(key)
		require.NoError(t, err, "key %q", key)
		assert.Equal(t, id, gotID)
		assert.Equal(t, d, gotDate)
	}

	assert.Equal(t, "r1_2024-03-05", EncodeInstanceKey("r1", d))
}

func TestDecodeInstanceKeyMalformed(t *testing.T) {
	for _, key := range []string{"", "nodate", "_2024-03-05", "id_", "id_notadate"} {
		_, _, err := DecodeInstanceKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestDayCodeWeekday(t *testing.T) {
	w, ok := DayCode("tue").Weekday()
	require.True(t, ok)
	assert.Equal(t, time.Tuesday, w)

	// Codes are case-insensitive on read.
	w, ok = DayCode("SUN").Weekday()
	require.True(t, ok)
	assert.Equal(t, time.Sunday, w)

	_, ok = DayCode("noday").Weekday()
	assert.False(t, ok)
}

func TestDateAt(t *testing.T) {
	d := Date{Year: 2024, Month: time.March, Day: 5}
	got := d.At(14, 30, time.UTC)
	assert.Equal(t, time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC), got)
}
