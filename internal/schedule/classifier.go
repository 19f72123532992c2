// Package schedule classifies league activities against the calendar and
// orders them for display: active first, then upcoming, then completed.
package schedule

import (
	"fmt"
	"sort"
	"time"

	"league-games-service/internal/domain"
)

// DateLayout is the calendar date format used in event configuration,
// e.g. "4/22/2025". Time of day is not significant anywhere in this package.
const DateLayout = "1/2/2006"

// ParseError reports a malformed calendar date. Callers must treat it as a
// configuration error; dates are never silently defaulted.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse calendar date %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseDate parses an M/D/YYYY calendar date in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, &ParseError{Input: s, Err: err}
	}
	return t, nil
}

// Classify maps now against the inclusive window [firstStart, lastEnd] at
// calendar-day granularity. The activity stays active through the whole of
// its last calendar day and is completed from the next day onward.
func Classify(now, firstStart, lastEnd time.Time) domain.Status {
	nowDay := dayOrdinal(now)
	if nowDay > dayOrdinal(lastEnd) {
		return domain.StatusCompleted
	}
	if nowDay >= dayOrdinal(firstStart) {
		return domain.StatusActive
	}
	return domain.StatusUpcoming
}

// ClassifyActivity classifies using only the first range's start and the last
// range's end; intermediate ranges are display detail.
func ClassifyActivity(now time.Time, a domain.Activity) domain.Status {
	return Classify(now, a.FirstStart(), a.LastEnd())
}

// Order classifies every activity against a single now value and returns them
// sorted by status priority (active, upcoming, completed) then first start
// date ascending. The sort is stable and idempotent: re-ordering an already
// ordered slice with the same now yields an identical sequence.
func Order(now time.Time, activities []domain.Activity) []domain.ClassifiedActivity {
	classified := make([]domain.ClassifiedActivity, 0, len(activities))
	for _, a := range activities {
		classified = append(classified, domain.ClassifiedActivity{
			Activity: a,
			Status:   ClassifyActivity(now, a),
		})
	}

	sort.SliceStable(classified, func(i, j int) bool {
		pi, pj := statusPriority(classified[i].Status), statusPriority(classified[j].Status)
		if pi != pj {
			return pi < pj
		}
		return classified[i].FirstStart().Before(classified[j].FirstStart())
	})
	return classified
}

func statusPriority(s domain.Status) int {
	switch s {
	case domain.StatusActive:
		return 0
	case domain.StatusUpcoming:
		return 1
	default:
		return 2
	}
}

// dayOrdinal flattens a timestamp to a comparable calendar day in its own
// location, so classification ignores time of day entirely.
func dayOrdinal(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
