// Package desktop replays the fixed keyboard sequences that bring desktop
// applications to the foreground and create calendar entries.
package desktop

import (
	"context"
	"fmt"
	"strings"

	"posteragent/internal/automation"
	"posteragent/internal/config"
	appLog "posteragent/internal/log"
)

// Replayer drives applications through an automation.Scheduler. None of its
// steps verify their own success: once the confirm key of a quick entry is
// sent there is no rollback and no check that an event was created.
type Replayer struct {
	sched automation.Scheduler
	cfg   config.AutomationConfig
	ready func(app string) *automation.Condition
}

// New returns a Replayer using the given scheduler and automation settings.
func New(sched automation.Scheduler, cfg config.AutomationConfig) *Replayer {
	return &Replayer{sched: sched, cfg: cfg, ready: automation.Frontmost}
}

// ForegroundSequence brings app to the foreground via the global
// application switcher: neutral click to clear stuck focus, switcher
// shortcut, type the app name, confirm, then wait for the window animation.
func (r *Replayer) ForegroundSequence(app string) automation.Sequence {
	t := r.cfg.Timing
	return automation.Sequence{
		automation.Click(r.cfg.NeutralClick.X, r.cfg.NeutralClick.Y),
		automation.Wait(t.AfterNeutralClick),
		automation.KeyCombo(r.cfg.Keys.Switcher...),
		automation.Wait(t.AfterSwitcher),
		automation.TypeText(app, t.TypeInterval),
		automation.Wait(t.AfterTyping),
		automation.KeyCombo(r.cfg.Keys.Confirm...),
		automation.WaitUntil(t.ForegroundSettle, r.ready(app)),
	}
}

// Foreground switches to app.
func (r *Replayer) Foreground(ctx context.Context, app string) error {
	appLog.Info("switching application", "app", app)
	if err := r.sched.Run(ctx, r.ForegroundSequence(app)); err != nil {
		return fmt.Errorf("desktop: foreground %s: %w", app, err)
	}
	return nil
}

// CalendarSequence is the full quick-entry sequence for one sentence. The
// sentence travels through the clipboard rather than being typed, so that
// special characters and typing speed cannot garble it.
func (r *Replayer) CalendarSequence(sentence string) automation.Sequence {
	t := r.cfg.Timing
	seq := r.ForegroundSequence(r.cfg.CalendarApp)
	return append(seq,
		automation.Wait(t.BeforeQuickEntry),
		automation.KeyCombo(r.cfg.Keys.QuickEntry...),
		automation.Wait(t.AfterQuickEntry),
		automation.Copy(sentence),
		automation.Wait(t.AfterCopy),
		automation.Paste(r.cfg.Keys.Paste...),
		automation.Wait(t.AfterPaste),
		automation.KeyCombo(r.cfg.Keys.Confirm...),
		automation.Wait(t.AfterConfirm),
	)
}

// CreateCalendarEntry replays the quick-entry sequence for sentence.
func (r *Replayer) CreateCalendarEntry(ctx context.Context, sentence string) error {
	if strings.TrimSpace(sentence) == "" {
		return fmt.Errorf("desktop: empty calendar sentence")
	}
	appLog.Info("creating calendar entry", "app", r.cfg.CalendarApp, "sentence", sentence)
	if err := r.sched.Run(ctx, r.CalendarSequence(sentence)); err != nil {
		return fmt.Errorf("desktop: calendar quick entry: %w", err)
	}
	appLog.Info("calendar entry submitted", "app", r.cfg.CalendarApp)
	return nil
}
