package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDay(t *testing.T) {
	assert.Equal(t, "20260105", EncodeDay(time.Date(2026, 1, 5, 13, 0, 0, 0, Location)))
	assert.Equal(t, "00990312", EncodeDay(time.Date(99, 3, 12, 0, 0, 0, 0, Location)))
}

func TestDecodeDay(t *testing.T) {
	d, err := DecodeDay("19900502")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1990, 5, 2, 0, 0, 0, 0, Location), d)
	assert.Equal(t, "19900502", EncodeDay(d))

	_, err = DecodeDay("1990-05-02")
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-01", FormatDate(d))

	_, err = ParseDate("01.02.2026")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestAppointmentTimes(t *testing.T) {
	a := Appointment{Day: time.Date(2026, 2, 1, 0, 0, 0, 0, Location), StartMinute: 570, DurationMinutes: 45}
	assert.Equal(t, time.Date(2026, 2, 1, 9, 30, 0, 0, Location), a.StartsAt())
	assert.Equal(t, time.Date(2026, 2, 1, 10, 15, 0, 0, Location), a.EndsAt())

	assert.True(t, a.Active())
	a.Status = StatusCancelled
	assert.False(t, a.Active())
	a.Status, a.Deleted = StatusScheduled, true
	assert.False(t, a.Active())
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "08:00", FormatClock(480))
	assert.Equal(t, "17:30", FormatClock(1050))
	assert.Equal(t, "00:05", FormatClock(5))
}
