package automation

import (
	"strings"
	"time"

	"club-crm/internal/models"
)

// inSilenceWindow reports whether automated replies are currently suppressed.
// Evaluated in the club's configured timezone. A start later than the end
// means the window wraps past midnight (22:00-08:00).
func (e *Engine) inSilenceWindow(settings *models.ClubSettings) bool {
	return silenceWindowAt(settings, e.now())
}

func silenceWindowAt(settings *models.ClubSettings, now time.Time) bool {
	if settings.SilenceHoursStart == "" || settings.SilenceHoursEnd == "" {
		return false
	}

	tz := settings.Timezone
	if tz == "" {
		tz = "Europe/Madrid"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}
	local := now.In(loc)

	day := strings.ToUpper(local.Weekday().String())
	for _, d := range settings.SilenceDayList() {
		if strings.ToUpper(d) == day {
			return true
		}
	}

	current := local.Format("15:04")
	start := settings.SilenceHoursStart
	end := settings.SilenceHoursEnd

	if start <= end {
		return current >= start && current < end
	}
	return current >= start || current < end
}
