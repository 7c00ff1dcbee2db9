package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across stages. Stages wrap them with context; the
// pipeline classifies outcomes with errors.Is.
var (
	// ErrPosterNotFound means the conversation has no image attachment.
	ErrPosterNotFound = errors.New("no poster image found in chat")
	// ErrExtraction covers service faults and unparseable extraction output.
	ErrExtraction = errors.New("poster extraction failed")
	// ErrDateUnparsed signals that the date could not be normalized and the
	// record was passed through unchanged.
	ErrDateUnparsed = errors.New("event date could not be parsed")
)

// EventRecord is the structured result of reading one poster. The JSON tags
// are the extraction response schema.
type EventRecord struct {
	Title            string `json:"title"`
	DateStr          string `json:"date_str"` // YYYY-MM-DD
	TimeStr          string `json:"time_str"` // HH:MM, 24-hour
	Location         string `json:"location"`
	CalendarSentence string `json:"calendar_sentence"`
}

// FormatSentence renders the quick-entry sentence for the given fields.
func FormatSentence(title, location, date, clock string) string {
	return fmt.Sprintf("%s at %s on %s at %s", title, location, date, clock)
}

// Sentence renders the quick-entry sentence from the record's own fields.
func (e EventRecord) Sentence() string {
	return FormatSentence(e.Title, e.Location, e.DateStr, e.TimeStr)
}

// Resync returns a copy whose CalendarSentence matches the other fields.
// Any code that changes Title, Location, DateStr or TimeStr must call it.
func (e EventRecord) Resync() EventRecord {
	e.CalendarSentence = e.Sentence()
	return e
}

// ImageHandle identifies one chat attachment located in the transcript. It
// is only meaningful within the run (and browser page) that produced it.
type ImageHandle struct {
	// Selector is the query that enumerated the candidate attachments.
	Selector string
	// Index is the position of the chosen attachment among the matches.
	Index int
	// Total is the number of matches seen when the handle was created.
	Total int
	// Source is the image src attribute, for logging only.
	Source string
}
