// Package normalize rolls past poster dates forward.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/teambition/rrule-go"

	appLog "posteragent/internal/log"
	"posteragent/internal/model"
)

const dateLayout = "2006-01-02"

// Normalizer corrects records whose date already passed. The correction is
// a flat move to next year: month, day and time are kept and the year
// becomes the current year + 1, however old the source date is.
type Normalizer struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Normalizer that reads dates in loc (nil means time.Local)
// and compares them against the wall clock.
func New(loc *time.Location) *Normalizer {
	return NewWithClock(loc, time.Now)
}

// NewWithClock is New with an explicit clock.
func NewWithClock(loc *time.Location, now func() time.Time) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{loc: loc, now: now}
}

// Normalize returns the record unchanged when its instant is at or after
// now. When it is strictly before now, DateStr moves to next year and
// CalendarSentence is regenerated; TimeStr is untouched.
//
// If the date cannot be read (or has no counterpart next year, like
// Feb 29), the record is returned unchanged together with
// model.ErrDateUnparsed. Callers treat that as a skip, not a failure.
func (n *Normalizer) Normalize(rec model.EventRecord) (model.EventRecord, error) {
	raw := strings.TrimSpace(rec.DateStr + " " + rec.TimeStr)
	at, err := dateparse.ParseIn(raw, n.loc)
	if err != nil {
		appLog.Warn("event date not parseable, passing record through", "date", rec.DateStr, "time", rec.TimeStr, "err", err)
		return rec, fmt.Errorf("%w: %q: %v", model.ErrDateUnparsed, raw, err)
	}

	now := n.now().In(n.loc)
	if !at.Before(now) {
		return rec, nil
	}

	target := now.Year() + 1
	shifted, ok := sameDateInYear(at, target)
	if !ok {
		appLog.Warn("past date has no counterpart next year, passing record through", "date", rec.DateStr, "year", target)
		return rec, fmt.Errorf("%w: %s does not exist in %d", model.ErrDateUnparsed, at.Format(dateLayout), target)
	}

	out := rec
	out.DateStr = shifted.Format(dateLayout)
	out = out.Resync()
	appLog.Info("past date detected, moved to next year", "from", rec.DateStr, "to", out.DateStr)
	return out, nil
}

// sameDateInYear finds the occurrence of a yearly recurrence anchored at
// at that falls in year. Dates that do not exist in that year yield false.
func sameDateInYear(at time.Time, year int) (time.Time, bool) {
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.YEARLY,
		Dtstart: at,
	})
	if err != nil {
		return time.Time{}, false
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, at.Location())
	to := from.AddDate(1, 0, 0)
	occ := r.Between(from, to, true)
	if len(occ) == 0 || occ[0].Year() != year {
		return time.Time{}, false
	}
	return occ[0], true
}
