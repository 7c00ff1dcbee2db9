package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when no -config flag is given.
const DefaultPath = "./posteragent.yaml"

// ExtractionConfig configures the vision model used to read posters.
type ExtractionConfig struct {
	// Model is the chat-completions model identifier, e.g. "gpt-4o".
	Model string `yaml:"model" json:"model"`
	// BaseURL overrides the API endpoint for OpenAI-compatible gateways.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	// APIKey is optional here; see internal/credentials for the lookup order.
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	// MaxTokens bounds the extraction response.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
}

// SelectorConfig is the DOM contract the chat client must satisfy.
type SelectorConfig struct {
	// Ready becomes visible once the client is logged in.
	Ready string `yaml:"ready" json:"ready"`
	// Search is the conversation-switch input (first match).
	Search string `yaml:"search" json:"search"`
	// Images matches clickable image attachments in transcript order.
	Images string `yaml:"images" json:"images"`
	// Composer is the editable message box under the conversation footer.
	Composer string `yaml:"composer" json:"composer"`
}

// ChatConfig describes the messaging web client.
type ChatConfig struct {
	URL string `yaml:"url" json:"url"`
	// Name is the conversation to open, as typed into the search box.
	Name string `yaml:"name" json:"name"`
	// App is the display name used to foreground the browser window.
	App string `yaml:"app" json:"app"`

	SessionDir string `yaml:"session_dir" json:"session_dir"`
	Headless   bool   `yaml:"headless" json:"headless"`

	// LoginTimeout bounds the wait for Selectors.Ready; LoginGrace is the
	// fallback sleep that leaves time to scan a QR code.
	LoginTimeout time.Duration `yaml:"login_timeout" json:"login_timeout"`
	LoginGrace   time.Duration `yaml:"login_grace" json:"login_grace"`

	// SearchSettle is the pause after typing the conversation name,
	// OpenSettle the pause after opening it.
	SearchSettle time.Duration `yaml:"search_settle" json:"search_settle"`
	OpenSettle   time.Duration `yaml:"open_settle" json:"open_settle"`

	// CaptureSettle is the pause between expanding an image and capturing it.
	CaptureSettle time.Duration `yaml:"capture_settle" json:"capture_settle"`
	// SendDelay is the pause between filling the composer and submitting.
	SendDelay time.Duration `yaml:"send_delay" json:"send_delay"`

	Selectors SelectorConfig `yaml:"selectors" json:"selectors"`
}

// ImageConfig bounds the payload sent for extraction.
type ImageConfig struct {
	MaxEdge int `yaml:"max_edge" json:"max_edge"`
	Quality int `yaml:"quality" json:"quality"`
}

// KeyConfig holds the OS-level key bindings. Key names are driver-neutral:
// "cmd", "ctrl", "alt", "shift", "space", "enter", "escape", "tab" or a
// single character.
type KeyConfig struct {
	Switcher   []string `yaml:"switcher" json:"switcher"`
	QuickEntry []string `yaml:"quick_entry" json:"quick_entry"`
	Paste      []string `yaml:"paste" json:"paste"`
	Confirm    []string `yaml:"confirm" json:"confirm"`
}

// Point is a screen coordinate.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// TimingConfig holds the empirically tuned delays of the desktop sequences.
type TimingConfig struct {
	AfterNeutralClick time.Duration `yaml:"after_neutral_click" json:"after_neutral_click"`
	AfterSwitcher     time.Duration `yaml:"after_switcher" json:"after_switcher"`
	TypeInterval      time.Duration `yaml:"type_interval" json:"type_interval"`
	AfterTyping       time.Duration `yaml:"after_typing" json:"after_typing"`
	ForegroundSettle  time.Duration `yaml:"foreground_settle" json:"foreground_settle"`
	BeforeQuickEntry  time.Duration `yaml:"before_quick_entry" json:"before_quick_entry"`
	AfterQuickEntry   time.Duration `yaml:"after_quick_entry" json:"after_quick_entry"`
	AfterCopy         time.Duration `yaml:"after_copy" json:"after_copy"`
	AfterPaste        time.Duration `yaml:"after_paste" json:"after_paste"`
	AfterConfirm      time.Duration `yaml:"after_confirm" json:"after_confirm"`
}

// AutomationConfig configures desktop automation.
type AutomationConfig struct {
	// Strategy is "fixed" (sleep-only) or "poll" (wait for the target app
	// to become frontmost, bounded by PollTimeout).
	Strategy     string        `yaml:"strategy" json:"strategy"`
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PollTimeout  time.Duration `yaml:"poll_timeout" json:"poll_timeout"`

	// Driver forces "applescript" or "xdotool"; empty picks by OS.
	Driver string `yaml:"driver,omitempty" json:"driver,omitempty"`

	CalendarApp  string       `yaml:"calendar_app" json:"calendar_app"`
	NeutralClick Point        `yaml:"neutral_click" json:"neutral_click"`
	Keys         KeyConfig    `yaml:"keys" json:"keys"`
	Timing       TimingConfig `yaml:"timing" json:"timing"`
}

// Config is the top-level application configuration.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction" json:"extraction"`
	Chat       ChatConfig       `yaml:"chat" json:"chat"`
	Image      ImageConfig      `yaml:"image" json:"image"`
	Automation AutomationConfig `yaml:"automation" json:"automation"`

	// WorkDir holds the raw capture, its optimized derivative and the
	// exported event. Files are overwritten on every run.
	WorkDir string `yaml:"work_dir" json:"work_dir"`

	// Timezone is the IANA zone used to interpret poster dates; empty
	// means the local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// CloseDelay keeps the browser open briefly after the run.
	CloseDelay time.Duration `yaml:"close_delay" json:"close_delay"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Extraction.Model == "" {
		c.Extraction.Model = "gpt-4o"
	}
	if c.Extraction.MaxTokens <= 0 {
		c.Extraction.MaxTokens = 300
	}

	ch := &c.Chat
	setString(&ch.URL, "https://web.whatsapp.com")
	setString(&ch.Name, "YOUR NAME (You)")
	setString(&ch.App, "Google Chrome")
	setString(&ch.SessionDir, "./whatsapp_session_bot")
	setDuration(&ch.LoginTimeout, 10*time.Second)
	setDuration(&ch.LoginGrace, 30*time.Second)
	setDuration(&ch.SearchSettle, 1500*time.Millisecond)
	setDuration(&ch.OpenSettle, 2*time.Second)
	setDuration(&ch.CaptureSettle, 2*time.Second)
	setDuration(&ch.SendDelay, time.Second)
	setString(&ch.Selectors.Ready, `div[contenteditable="true"]`)
	setString(&ch.Selectors.Search, `div[contenteditable="true"]`)
	setString(&ch.Selectors.Images, `#main div[role='button'] img`)
	setString(&ch.Selectors.Composer, `footer div[contenteditable="true"]`)

	if c.Image.MaxEdge <= 0 {
		c.Image.MaxEdge = 1024
	}
	if c.Image.Quality <= 0 || c.Image.Quality > 100 {
		c.Image.Quality = 85
	}

	a := &c.Automation
	switch a.Strategy {
	case "fixed", "poll":
		// ok
	default:
		// Unknown or empty; fixed delays are the compatible behavior.
		a.Strategy = "fixed"
	}
	setDuration(&a.PollInterval, 100*time.Millisecond)
	setDuration(&a.PollTimeout, 5*time.Second)
	setString(&a.CalendarApp, "Calendar")
	if a.NeutralClick == (Point{}) {
		a.NeutralClick = Point{X: 100, Y: 10}
	}
	setKeys(&a.Keys.Switcher, "cmd", "space")
	setKeys(&a.Keys.QuickEntry, "cmd", "n")
	setKeys(&a.Keys.Paste, "cmd", "v")
	setKeys(&a.Keys.Confirm, "enter")

	tm := &a.Timing
	setDuration(&tm.AfterNeutralClick, 500*time.Millisecond)
	setDuration(&tm.AfterSwitcher, 800*time.Millisecond)
	setDuration(&tm.TypeInterval, 50*time.Millisecond)
	setDuration(&tm.AfterTyping, 300*time.Millisecond)
	setDuration(&tm.ForegroundSettle, 2*time.Second)
	setDuration(&tm.BeforeQuickEntry, time.Second)
	setDuration(&tm.AfterQuickEntry, 1500*time.Millisecond)
	setDuration(&tm.AfterCopy, 500*time.Millisecond)
	setDuration(&tm.AfterPaste, 2500*time.Millisecond)
	setDuration(&tm.AfterConfirm, 2*time.Second)

	setString(&c.WorkDir, "./downloads")
	setDuration(&c.CloseDelay, 5*time.Second)
	setString(&c.LogLevel, "info")
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setDuration(v *time.Duration, def time.Duration) {
	if *v <= 0 {
		*v = def
	}
}

func setKeys(v *[]string, def ...string) {
	if len(*v) == 0 {
		*v = def
	}
}

// ExpandPaths resolves "~" in the filesystem paths.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.WorkDir, &c.Chat.SessionDir} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and expand "~" paths
//
// The returned value is treated as immutable by the rest of the program.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, cfg.ExpandPaths()
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600, since the file may carry
//     an API key.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".posteragent-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
