package automation

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Driver injects OS-level input.
type Driver interface {
	Click(ctx context.Context, x, y int) error
	KeyCombo(ctx context.Context, keys ...string) error
	TypeText(ctx context.Context, text string, interval time.Duration) error
}

// Probe queries desktop state for polling waits.
type Probe interface {
	FrontmostApp(ctx context.Context) (string, error)
}

// Device is a Driver that can also answer Probe queries.
type Device interface {
	Driver
	Probe
}

// Runner executes an external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return stdout.Bytes(), fmt.Errorf("%s exited with code %d: %w (stderr: %s)",
			name, exitCode, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// NewDriver picks a driver by name ("applescript", "xdotool") or, when
// name is empty, by GOOS.
func NewDriver(name, goos string, run Runner) (Device, error) {
	if run == nil {
		run = ExecRunner
	}
	if name == "" {
		switch goos {
		case "darwin":
			name = "applescript"
		case "linux", "freebsd", "openbsd":
			name = "xdotool"
		default:
			return nil, fmt.Errorf("automation: no input driver for %s", goos)
		}
	}
	switch name {
	case "applescript":
		return &AppleScript{run: run}, nil
	case "xdotool":
		return &Xdotool{run: run}, nil
	default:
		return nil, fmt.Errorf("automation: unknown driver %q", name)
	}
}

// AppleScript drives macOS through System Events via osascript.
type AppleScript struct {
	run Runner
}

// macOS virtual key codes for keys that keystroke cannot express.
var appleKeyCodes = map[string]int{
	"enter":  36,
	"return": 36,
	"tab":    48,
	"escape": 53,
	"esc":    53,
}

var appleModifiers = map[string]string{
	"cmd":     "command down",
	"command": "command down",
	"ctrl":    "control down",
	"control": "control down",
	"alt":     "option down",
	"option":  "option down",
	"shift":   "shift down",
}

func (a *AppleScript) osascript(ctx context.Context, script string) ([]byte, error) {
	return a.run(ctx, "osascript", "-e", script)
}

func (a *AppleScript) Click(ctx context.Context, x, y int) error {
	_, err := a.osascript(ctx, fmt.Sprintf(`tell application "System Events" to click at {%d, %d}`, x, y))
	return err
}

func (a *AppleScript) KeyCombo(ctx context.Context, keys ...string) error {
	script, err := appleKeyScript(keys)
	if err != nil {
		return err
	}
	_, err = a.osascript(ctx, script)
	return err
}

func appleKeyScript(keys []string) (string, error) {
	var mods []string
	var main string
	for _, k := range keys {
		k = strings.ToLower(k)
		if m, ok := appleModifiers[k]; ok {
			mods = append(mods, m)
			continue
		}
		if main != "" {
			return "", fmt.Errorf("automation: combo %v has more than one non-modifier key", keys)
		}
		main = k
	}
	if main == "" {
		return "", fmt.Errorf("automation: combo %v has no key", keys)
	}

	var stroke string
	if code, ok := appleKeyCodes[main]; ok {
		stroke = fmt.Sprintf("key code %d", code)
	} else if main == "space" {
		stroke = `keystroke " "`
	} else {
		stroke = "keystroke " + appleQuote(main)
	}
	if len(mods) > 0 {
		stroke += " using {" + strings.Join(mods, ", ") + "}"
	}
	return `tell application "System Events" to ` + stroke, nil
}

func (a *AppleScript) TypeText(ctx context.Context, text string, interval time.Duration) error {
	var b strings.Builder
	b.WriteString("tell application \"System Events\"\n")
	for _, r := range text {
		b.WriteString("keystroke " + appleQuote(string(r)) + "\n")
		if interval > 0 {
			fmt.Fprintf(&b, "delay %.3f\n", interval.Seconds())
		}
	}
	b.WriteString("end tell")
	_, err := a.osascript(ctx, b.String())
	return err
}

func (a *AppleScript) FrontmostApp(ctx context.Context) (string, error) {
	out, err := a.osascript(ctx, `tell application "System Events" to get name of first application process whose frontmost is true`)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func appleQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// Xdotool drives X11 desktops.
type Xdotool struct {
	run Runner
}

var xdotoolNames = map[string]string{
	"cmd":     "super",
	"command": "super",
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"enter":   "Return",
	"return":  "Return",
	"escape":  "Escape",
	"esc":     "Escape",
	"tab":     "Tab",
	"space":   "space",
}

func (x *Xdotool) Click(ctx context.Context, px, py int) error {
	_, err := x.run(ctx, "xdotool", "mousemove", fmt.Sprint(px), fmt.Sprint(py), "click", "1")
	return err
}

func (x *Xdotool) KeyCombo(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return fmt.Errorf("automation: empty key combo")
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if n, ok := xdotoolNames[strings.ToLower(k)]; ok {
			names = append(names, n)
		} else {
			names = append(names, k)
		}
	}
	_, err := x.run(ctx, "xdotool", "key", "--clearmodifiers", strings.Join(names, "+"))
	return err
}

func (x *Xdotool) TypeText(ctx context.Context, text string, interval time.Duration) error {
	_, err := x.run(ctx, "xdotool", "type", "--delay", fmt.Sprint(interval.Milliseconds()), "--", text)
	return err
}

func (x *Xdotool) FrontmostApp(ctx context.Context) (string, error) {
	out, err := x.run(ctx, "xdotool", "getactivewindow", "getwindowname")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
