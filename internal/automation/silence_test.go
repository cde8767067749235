package automation

import (
	"testing"
	"time"

	"club-crm/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestSilenceWindowSameDay(t *testing.T) {
	settings := &models.ClubSettings{
		Timezone:          "UTC",
		SilenceHoursStart: "14:00",
		SilenceHoursEnd:   "16:00",
	}

	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 4, hour, min, 0, 0, time.UTC) // a Wednesday
	}

	assert.False(t, silenceWindowAt(settings, at(13, 59)))
	assert.True(t, silenceWindowAt(settings, at(14, 0)), "start is inclusive")
	assert.True(t, silenceWindowAt(settings, at(15, 30)))
	assert.False(t, silenceWindowAt(settings, at(16, 0)), "end is exclusive")
}

func TestSilenceWindowOvernightWrap(t *testing.T) {
	settings := &models.ClubSettings{
		Timezone:          "UTC",
		SilenceHoursStart: "22:00",
		SilenceHoursEnd:   "08:00",
	}

	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 4, hour, min, 0, 0, time.UTC)
	}

	assert.True(t, silenceWindowAt(settings, at(23, 30)))
	assert.True(t, silenceWindowAt(settings, at(2, 0)))
	assert.True(t, silenceWindowAt(settings, at(7, 59)))
	assert.False(t, silenceWindowAt(settings, at(8, 0)))
	assert.False(t, silenceWindowAt(settings, at(12, 0)))
	assert.False(t, silenceWindowAt(settings, at(21, 59)))
}

func TestSilenceWindowWeekdayBlackout(t *testing.T) {
	settings := &models.ClubSettings{
		Timezone:          "UTC",
		SilenceHoursStart: "22:00",
		SilenceHoursEnd:   "08:00",
		SilenceDays:       `["SUNDAY","monday"]`,
	}

	sundayNoon := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)
	mondayNoon := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	tuesdayNoon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	// Blacked-out days silence the whole day regardless of the hour window
	assert.True(t, silenceWindowAt(settings, sundayNoon))
	assert.True(t, silenceWindowAt(settings, mondayNoon), "day names match case-insensitively")
	assert.False(t, silenceWindowAt(settings, tuesdayNoon))
}

func TestSilenceWindowUnconfigured(t *testing.T) {
	settings := &models.ClubSettings{Timezone: "UTC"}
	assert.False(t, silenceWindowAt(settings, time.Now()))

	// One missing bound disables the window too
	settings.SilenceHoursStart = "22:00"
	assert.False(t, silenceWindowAt(settings, time.Now()))
}

func TestSilenceWindowTimezoneConversion(t *testing.T) {
	settings := &models.ClubSettings{
		Timezone:          "Europe/Madrid",
		SilenceHoursStart: "22:00",
		SilenceHoursEnd:   "08:00",
	}

	// 21:30 UTC in winter is 22:30 in Madrid, inside the window
	utcEvening := time.Date(2026, 1, 14, 21, 30, 0, 0, time.UTC)
	assert.True(t, silenceWindowAt(settings, utcEvening))

	// 20:30 UTC is 21:30 in Madrid, still outside
	assert.False(t, silenceWindowAt(settings, utcEvening.Add(-time.Hour)))
}
