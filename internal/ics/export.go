package ics

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "posteragent/internal/log"
	"posteragent/internal/model"
)

const (
	productID = "-//posteragent//poster event//EN"

	// defaultDuration is used for timed events; posters rarely state an end.
	defaultDuration = time.Hour
)

// Writer stores a serialized calendar.
type Writer interface {
	SaveEvent(ics []byte) (string, error)
}

// Exporter writes the run's event as an .ics artifact next to the captures.
type Exporter struct {
	out Writer
	loc *time.Location
	now func() time.Time
}

// NewExporter returns an Exporter that interprets dates in loc.
func NewExporter(out Writer, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{out: out, loc: loc, now: time.Now}
}

// ExportEvent serializes rec and hands it to the writer.
func (e *Exporter) ExportEvent(rec model.EventRecord) error {
	data, err := Build(rec, e.loc, e.now(), uuid.NewString())
	if err != nil {
		return err
	}
	p, err := e.out.SaveEvent(data)
	if err != nil {
		return err
	}
	appLog.Info("event exported", "path", p)
	return nil
}

// Build renders rec as a single-VEVENT calendar. Records without a time
// become all-day events.
func Build(rec model.EventRecord, loc *time.Location, stamp time.Time, uid string) ([]byte, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(rec.DateStr), loc)
	if err != nil {
		return nil, fmt.Errorf("ics: date %q: %w", rec.DateStr, err)
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(stamp)
	ev.SetCreatedTime(stamp)
	ev.SetSummary(rec.Title)
	if rec.Location != "" {
		ev.SetLocation(rec.Location)
	}
	ev.SetDescription(rec.CalendarSentence)

	clock := strings.TrimSpace(rec.TimeStr)
	if clock == "" {
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
	} else {
		start, err := time.ParseInLocation("2006-01-02 15:04", rec.DateStr+" "+clock, loc)
		if err != nil {
			return nil, fmt.Errorf("ics: time %q: %w", rec.TimeStr, err)
		}
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(defaultDuration))
	}

	return []byte(cal.Serialize()), nil
}
