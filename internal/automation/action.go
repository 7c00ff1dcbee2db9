// Package automation drives desktop applications with timed sequences of
// OS-level input actions.
//
// Control is open loop: the target applications give no signal that a
// keystroke landed where it was meant to. A slower machine or a different
// window-manager setup can make later keystrokes go to the wrong window
// without any error surfacing. The Polling scheduler narrows that risk on
// platforms where the frontmost application can be queried.
package automation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind enumerates the primitive actions.
type Kind int

const (
	KindClick Kind = iota
	KindKeyCombo
	KindTypeText
	KindCopy
	KindPaste
	KindWait
)

func (k Kind) String() string {
	switch k {
	case KindClick:
		return "click"
	case KindKeyCombo:
		return "key-combo"
	case KindTypeText:
		return "type-text"
	case KindCopy:
		return "copy"
	case KindPaste:
		return "paste"
	case KindWait:
		return "wait"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Condition reports whether the desktop reached an expected state.
type Condition struct {
	// Name describes the condition in logs.
	Name  string
	Check func(ctx context.Context, p Probe) (bool, error)
}

// Frontmost is met once the named application owns the foreground.
func Frontmost(app string) *Condition {
	return &Condition{
		Name: "frontmost=" + app,
		Check: func(ctx context.Context, p Probe) (bool, error) {
			name, err := p.FrontmostApp(ctx)
			if err != nil {
				return false, err
			}
			return strings.Contains(strings.ToLower(name), strings.ToLower(app)), nil
		},
	}
}

// Action is one primitive step. Only the fields relevant to Kind are set.
type Action struct {
	Kind     Kind
	X, Y     int
	Keys     []string
	Text     string
	Interval time.Duration
	Duration time.Duration
	// Until, on a wait, lets a polling scheduler finish the wait as soon
	// as the condition holds. Fixed-delay schedulers ignore it.
	Until *Condition
}

func (a Action) String() string {
	switch a.Kind {
	case KindClick:
		return fmt.Sprintf("click(%d,%d)", a.X, a.Y)
	case KindKeyCombo:
		return "key-combo(" + strings.Join(a.Keys, "+") + ")"
	case KindTypeText:
		return fmt.Sprintf("type-text(%q)", a.Text)
	case KindCopy:
		return fmt.Sprintf("copy(%d chars)", len([]rune(a.Text)))
	case KindPaste:
		return "paste"
	case KindWait:
		if a.Until != nil {
			return fmt.Sprintf("wait(%s until %s)", a.Duration, a.Until.Name)
		}
		return fmt.Sprintf("wait(%s)", a.Duration)
	default:
		return a.Kind.String()
	}
}

// Sequence is an ordered list of actions, executed strictly in order.
type Sequence []Action

func Click(x, y int) Action {
	return Action{Kind: KindClick, X: x, Y: y}
}

func KeyCombo(keys ...string) Action {
	return Action{Kind: KindKeyCombo, Keys: keys}
}

// TypeText types text character by character with the given gap.
func TypeText(text string, interval time.Duration) Action {
	return Action{Kind: KindTypeText, Text: text, Interval: interval}
}

// Copy overwrites the OS clipboard with text.
func Copy(text string) Action {
	return Action{Kind: KindCopy, Text: text}
}

// Paste sends the paste shortcut with the given keys.
func Paste(keys ...string) Action {
	return Action{Kind: KindPaste, Keys: keys}
}

func Wait(d time.Duration) Action {
	return Action{Kind: KindWait, Duration: d}
}

// WaitUntil waits d, or until cond holds when the scheduler can poll.
func WaitUntil(d time.Duration, cond *Condition) Action {
	return Action{Kind: KindWait, Duration: d, Until: cond}
}
