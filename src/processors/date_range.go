// backend/src/processors/date_range.go
package processors

import (
	"fmt"
	"strings"
	"time"

	"github.com/username/tidyguru/backend/src/models"
	"github.com/username/tidyguru/backend/src/utils"
)

// Preset names accepted by RangeForPreset.
const (
	PresetWeek  = "week"
	PresetMonth = "month"
	PresetAll   = "all"
)

// RangeForPreset resolves a dashboard preset against now.
// "week" starts on Sunday of the current week, "month" is the last 30 days.
func RangeForPreset(preset string, now time.Time) (models.DateRange, error) {
	switch strings.ToLower(strings.TrimSpace(preset)) {
	case PresetWeek, "this_week":
		from := startOfDay(now).AddDate(0, 0, -int(now.Weekday()))
		to := now
		return models.DateRange{From: &from, To: &to}, nil
	case PresetMonth, "last_30_days":
		from := now.AddDate(0, 0, -30)
		to := now
		return models.DateRange{From: &from, To: &to}, nil
	case PresetAll, "all_time", "":
		return models.DateRange{}, nil
	default:
		return models.DateRange{}, fmt.Errorf("unknown date range preset: %s", preset)
	}
}

// FilterByDateRange keeps records whose civil date falls inside r.
// To, when present, includes its whole day.
func FilterByDateRange(records []models.SalesRecord, r models.DateRange) []models.SalesRecord {
	if r.From == nil {
		// A range with only an end bound does not restrict the dashboard.
		return records
	}

	from := civilStart(*r.From)
	var to time.Time
	if r.To != nil {
		to = civilEnd(*r.To)
	}

	filtered := make([]models.SalesRecord, 0, len(records))
	for _, rec := range records {
		day := utils.CivilDate(rec.Date)
		if day.Before(from) {
			continue
		}
		if r.To != nil && day.After(to) {
			continue
		}
		filtered = append(filtered, rec)
	}
	return filtered
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// civilStart and civilEnd project a bound onto the UTC civil-date axis records use.
func civilStart(t time.Time) time.Time {
	return utils.CivilDate(t)
}

func civilEnd(t time.Time) time.Time {
	return utils.CivilDate(t).Add(24*time.Hour - time.Nanosecond)
}
