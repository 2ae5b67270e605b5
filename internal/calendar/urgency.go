// Package calendar is the agenda procesal: events, their urgency and the
// upcoming-deadline list.
package calendar

import (
	"math"
	"sort"
	"time"

	"github.com/jomosautsem/lex/pkg/models"
)

// Level is how close an event is.
type Level string

const (
	Past     Level = "past"
	Critical Level = "critical" // today up to two days out
	Soon     Level = "soon"     // within a week
	Normal   Level = "normal"
)

// DaysUntil is the ceiling of the day difference between the event's calendar
// date and today's date at midnight. Both are read as civil dates.
func DaysUntil(eventDate, today time.Time) int {
	ev := time.Date(eventDate.Year(), eventDate.Month(), eventDate.Day(), 0, 0, 0, 0, time.UTC)
	t0 := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(ev.Sub(t0).Hours() / 24))
}

// Urgency classifies an event date relative to today.
func Urgency(eventDate, today time.Time) Level {
	d := DaysUntil(eventDate, today)
	switch {
	case d < 0:
		return Past
	case d <= 2:
		return Critical
	case d <= 7:
		return Soon
	default:
		return Normal
	}
}

// Entry is an event annotated with its urgency.
type Entry struct {
	models.LegalEvent
	Urgency  Level `json:"urgency"`
	DaysLeft int   `json:"daysLeft"`
}

// Annotate attaches urgency to each event. Events whose date does not parse
// are treated as normal.
func Annotate(events []models.LegalEvent, today time.Time) []Entry {
	out := make([]Entry, 0, len(events))
	for _, e := range events {
		en := Entry{LegalEvent: e, Urgency: Normal}
		if d, err := time.Parse(models.DateLayout, e.Date); err == nil {
			en.DaysLeft = DaysUntil(d, today)
			en.Urgency = Urgency(d, today)
		}
		out = append(out, en)
	}
	return out
}

// SortByDate orders events by date then time, stable for equal keys.
func SortByDate(events []models.LegalEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Time < events[j].Time
	})
}

// Upcoming returns at most n events that are not past, soonest first.
// The input is not modified.
func Upcoming(events []models.LegalEvent, today time.Time, n int) []Entry {
	sorted := append([]models.LegalEvent(nil), events...)
	SortByDate(sorted)
	out := make([]Entry, 0, n)
	for _, en := range Annotate(sorted, today) {
		if len(out) == n {
			break
		}
		if en.Urgency != Past {
			out = append(out, en)
		}
	}
	return out
}
