package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/la-portal-api/internal/models"
)

// MaxExpansionDays bounds a single calendar expansion.
const MaxExpansionDays = 366

// ErrRangeTooLong is returned when an expansion range exceeds MaxExpansionDays.
var ErrRangeTooLong = fmt.Errorf("date range exceeds %d days", MaxExpansionDays)

// ExpandSessions produces one dated session for every date in [from, to]
// whose weekday matches the entry. Only the calendar dates of from and to are
// used. A to before from is an empty range.
func ExpandSessions(entry models.ScheduleEntry, from, to time.Time, loc *time.Location) ([]models.Session, error) {
	if loc == nil {
		loc = time.UTC
	}
	if entry.DayOfWeek < 0 || entry.DayOfWeek > 6 {
		return nil, fmt.Errorf("day of week %d out of range", entry.DayOfWeek)
	}
	if !entry.StartTime.Before(entry.EndTime) {
		return nil, fmt.Errorf("start time %s must precede end time %s", entry.StartTime, entry.EndTime)
	}

	first := dateOnly(from, loc)
	last := dateOnly(to, loc)
	if last.Before(first) {
		return []models.Session{}, nil
	}
	if days := int(last.Sub(first).Hours()/24) + 1; days > MaxExpansionDays {
		return nil, ErrRangeTooLong
	}

	offset := (entry.DayOfWeek - int(first.Weekday()) + 7) % 7
	sessions := make([]models.Session, 0)
	for day := first.AddDate(0, 0, offset); !day.After(last); day = day.AddDate(0, 0, 7) {
		sessions = append(sessions, models.Session{
			ScheduleID:   entry.ID,
			SessionStart: entry.StartTime.On(day, loc),
			SessionEnd:   entry.EndTime.On(day, loc),
		})
	}
	return sessions, nil
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ParseDate reads a YYYY-MM-DD date in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation("2006-01-02", raw, loc)
}
