package date

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse("2024-02-29")
	require.NoError(t, err)
	assert.True(t, d.IsSet())
	assert.True(t, d.IsValid())
	assert.Equal(t, "2024-02-29", d.String())

	invalid, err := Parse("2022-02-30")
	require.NoError(t, err, "well-shaped dates parse even when impossible")
	assert.True(t, invalid.IsSet())
	assert.False(t, invalid.IsValid())

	_, err = Parse("2022-2-3")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestZeroValueIsAbsent(t *testing.T) {
	var d Date
	assert.False(t, d.IsSet())
	assert.False(t, d.IsValid())
	assert.Equal(t, "", d.String())
	assert.True(t, d.Equal(Date{}))
	assert.False(t, d.Equal(MustParse("2022-01-01")))
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		from   string
		months int
		want   string
	}{
		{"2022-01-31", 1, "2022-02-28"},
		{"2024-01-31", 1, "2024-02-29"},
		{"2022-01-31", 3, "2022-04-30"},
		{"2023-12-31", 2, "2024-02-29"},
		{"2020-03-31", 11, "2021-02-28"},
		{"2020-01-31", 13, "2021-02-28"},
		{"2022-03-31", -1, "2022-02-28"},
		{"2022-01-15", -13, "2020-12-15"},
	}

	for _, tt := range tests {
		t.Run(tt.from, func(t *testing.T) {
			got := MustParse(tt.from).AddMonths(tt.months)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestAddYearsLeapDay(t *testing.T) {
	assert.Equal(t, "2026-02-28", MustParse("2024-02-29").AddYears(2).String())
	assert.Equal(t, "2028-02-29", MustParse("2024-02-29").AddYears(4).String())
}

func TestAddDaysLeavesInvalidDatesAlone(t *testing.T) {
	invalid := MustParse("2022-02-30")
	assert.Equal(t, invalid, invalid.AddDays(1))
	assert.Equal(t, "2022-03-01", MustParse("2022-02-28").AddDays(1).String())
}

func TestDaysUntilAndWeekday(t *testing.T) {
	a := MustParse("2022-01-01")
	b := MustParse("2022-03-01")
	assert.Equal(t, 59, a.DaysUntil(b))
	assert.Equal(t, -59, b.DaysUntil(a))
	assert.Equal(t, time.Saturday, a.Weekday())
}

func TestFromTimeUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)
	d := FromTime(time.Date(2022, 1, 1, 23, 30, 0, 0, loc))
	assert.Equal(t, "2022-01-01", d.String())
}
