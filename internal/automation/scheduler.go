package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "posteragent/internal/log"
)

// ErrNotReady is returned by Polling when a wait condition never held.
var ErrNotReady = errors.New("automation: target not ready")

// Scheduler executes action sequences.
type Scheduler interface {
	Run(ctx context.Context, seq Sequence) error
}

// Clipboard is the OS clipboard, used as a single-writer channel.
type Clipboard interface {
	WriteAll(text string) error
}

// executor runs the non-wait primitives shared by both strategies.
type executor struct {
	driver    Driver
	clipboard Clipboard
	sleep     func(time.Duration)
}

func (e *executor) do(ctx context.Context, a Action) error {
	switch a.Kind {
	case KindClick:
		return e.driver.Click(ctx, a.X, a.Y)
	case KindKeyCombo, KindPaste:
		return e.driver.KeyCombo(ctx, a.Keys...)
	case KindTypeText:
		return e.driver.TypeText(ctx, a.Text, a.Interval)
	case KindCopy:
		return e.clipboard.WriteAll(a.Text)
	case KindWait:
		e.sleep(a.Duration)
		return nil
	default:
		return fmt.Errorf("automation: unknown action kind %d", a.Kind)
	}
}

func (e *executor) run(ctx context.Context, seq Sequence, wait func(context.Context, Action) error) error {
	for i, a := range seq {
		if err := ctx.Err(); err != nil {
			return err
		}
		appLog.Debug("automation step", "step", i+1, "of", len(seq), "action", a.String())
		var err error
		if a.Kind == KindWait {
			err = wait(ctx, a)
		} else {
			err = e.do(ctx, a)
		}
		if err != nil {
			return fmt.Errorf("automation: step %d %s: %w", i+1, a.Kind, err)
		}
	}
	return nil
}

// FixedDelay treats every wait as an unconditional sleep. No step checks
// that the previous one took effect.
type FixedDelay struct {
	executor
}

// NewFixedDelay returns the sleep-only scheduler.
func NewFixedDelay(d Driver, c Clipboard) *FixedDelay {
	return &FixedDelay{executor{driver: d, clipboard: c, sleep: time.Sleep}}
}

func (f *FixedDelay) Run(ctx context.Context, seq Sequence) error {
	return f.run(ctx, seq, func(ctx context.Context, a Action) error {
		return f.do(ctx, a)
	})
}

// Polling ends conditional waits as soon as their condition holds and fails
// with ErrNotReady when it does not hold within max(wait, Timeout).
// Unconditional waits still sleep.
type Polling struct {
	executor
	probe    Probe
	Interval time.Duration
	Timeout  time.Duration
	now      func() time.Time
}

// NewPolling returns a scheduler that polls probe for conditional waits.
func NewPolling(d Driver, c Clipboard, p Probe, interval, timeout time.Duration) *Polling {
	return &Polling{
		executor: executor{driver: d, clipboard: c, sleep: time.Sleep},
		probe:    p,
		Interval: interval,
		Timeout:  timeout,
		now:      time.Now,
	}
}

func (p *Polling) Run(ctx context.Context, seq Sequence) error {
	return p.run(ctx, seq, p.wait)
}

func (p *Polling) wait(ctx context.Context, a Action) error {
	if a.Until == nil {
		p.sleep(a.Duration)
		return nil
	}

	limit := a.Duration
	if p.Timeout > limit {
		limit = p.Timeout
	}
	deadline := p.now().Add(limit)

	for {
		ok, err := a.Until.Check(ctx, p.probe)
		if err != nil {
			appLog.Warn("automation probe failed", "condition", a.Until.Name, "err", err)
		}
		if ok {
			return nil
		}
		if !p.now().Before(deadline) {
			return fmt.Errorf("%w: %s after %s", ErrNotReady, a.Until.Name, limit)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p.sleep(p.Interval)
	}
}
