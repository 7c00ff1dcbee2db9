package desktop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posteragent/internal/automation"
	"posteragent/internal/config"
)

type fakeScheduler struct {
	runs []automation.Sequence
	err  error
}

func (f *fakeScheduler) Run(_ context.Context, seq automation.Sequence) error {
	f.runs = append(f.runs, seq)
	return f.err
}

func kinds(seq automation.Sequence) []automation.Kind {
	out := make([]automation.Kind, len(seq))
	for i, a := range seq {
		out[i] = a.Kind
	}
	return out
}

func newReplayer(s automation.Scheduler) *Replayer {
	return New(s, config.DefaultConfig().Automation)
}

func TestForegroundSequence(t *testing.T) {
	r := newReplayer(&fakeScheduler{})

	seq := r.ForegroundSequence("Google Chrome")

	assert.Equal(t, []automation.Kind{
		automation.KindClick, automation.KindWait,
		automation.KindKeyCombo, automation.KindWait,
		automation.KindTypeText, automation.KindWait,
		automation.KindKeyCombo, automation.KindWait,
	}, kinds(seq))
	assert.Equal(t, 100, seq[0].X)
	assert.Equal(t, 10, seq[0].Y)
	assert.Equal(t, []string{"cmd", "space"}, seq[2].Keys)
	assert.Equal(t, "Google Chrome", seq[4].Text)
	assert.Equal(t, 50*time.Millisecond, seq[4].Interval)
	assert.Equal(t, []string{"enter"}, seq[6].Keys)
	assert.Equal(t, 2*time.Second, seq[7].Duration)
	require.NotNil(t, seq[7].Until)
	assert.Equal(t, "frontmost=Google Chrome", seq[7].Until.Name)
}

func TestCalendarSequencePastesSentence(t *testing.T) {
	fs := &fakeScheduler{}
	r := newReplayer(fs)

	require.NoError(t, r.CreateCalendarEntry(context.Background(), "Jazz Night at Blue Note on 2026-10-03 at 18:00"))
	require.Len(t, fs.runs, 1)
	seq := fs.runs[0]

	tail := seq[len(r.ForegroundSequence("Calendar")):]
	assert.Equal(t, []automation.Kind{
		automation.KindWait,
		automation.KindKeyCombo,
		automation.KindWait,
		automation.KindCopy,
		automation.KindWait,
		automation.KindPaste,
		automation.KindWait,
		automation.KindKeyCombo,
		automation.KindWait,
	}, kinds(tail))
	assert.Equal(t, "Calendar", seq[4].Text, "calendar app is foregrounded first")
	assert.Equal(t, []string{"cmd", "n"}, tail[1].Keys)
	assert.Equal(t, "Jazz Night at Blue Note on 2026-10-03 at 18:00", tail[3].Text)
	assert.Equal(t, []string{"cmd", "v"}, tail[5].Keys)
	assert.Equal(t, []string{"enter"}, tail[7].Keys)
	assert.Equal(t, 2500*time.Millisecond, tail[6].Duration)
}

func TestCreateCalendarEntryRejectsEmptySentence(t *testing.T) {
	fs := &fakeScheduler{}
	r := newReplayer(fs)

	assert.Error(t, r.CreateCalendarEntry(context.Background(), "  "))
	assert.Empty(t, fs.runs)
}

func TestForegroundWrapsSchedulerError(t *testing.T) {
	r := newReplayer(&fakeScheduler{err: automation.ErrNotReady})

	err := r.Foreground(context.Background(), "Calendar")
	assert.ErrorIs(t, err, automation.ErrNotReady)
}

func TestCreateCalendarEntryPropagatesFailure(t *testing.T) {
	r := newReplayer(&fakeScheduler{err: errors.New("osascript missing")})

	err := r.CreateCalendarEntry(context.Background(), "x at y on 2026-01-01 at 10:00")
	assert.ErrorContains(t, err, "osascript missing")
}
