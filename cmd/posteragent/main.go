package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"posteragent/internal/automation"
	"posteragent/internal/capture"
	"posteragent/internal/chat"
	"posteragent/internal/config"
	"posteragent/internal/confirm"
	"posteragent/internal/credentials"
	"posteragent/internal/desktop"
	"posteragent/internal/extract"
	"posteragent/internal/ics"
	appLog "posteragent/internal/log"
	"posteragent/internal/normalize"
	"posteragent/internal/pipeline"
	"posteragent/internal/workdir"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	chatName   string
	headless   bool
	saveKey    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	appLog.Info("posteragent starting", "version", "0.1.0")

	flags, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		appLog.Error("invalid command line", err)
		return 2
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		return 1
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if flags.saveKey {
		return saveKey()
	}

	// CLI overrides.
	if flags.chatName != "" {
		conf.Chat.Name = flags.chatName
	}
	if flags.headless {
		conf.Chat.Headless = true
	}

	appLog.Info("effective config",
		"chat", conf.Chat.Name,
		"model", conf.Extraction.Model,
		"calendar_app", conf.Automation.CalendarApp,
		"strategy", conf.Automation.Strategy,
		"work_dir", conf.WorkDir,
		"timezone", conf.Timezone,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	apiKey, err := credentials.APIKey(conf.Extraction.APIKey)
	if err != nil {
		appLog.Error("no extraction API key", err, "env", credentials.EnvAPIKey)
		return 1
	}
	loc, err := conf.Location()
	if err != nil {
		appLog.Error("invalid timezone", err, "timezone", conf.Timezone)
		return 1
	}

	store := workdir.New(afero.NewOsFs(), conf.WorkDir)
	if err := store.Ensure(); err != nil {
		appLog.Error("failed to prepare working directory", err)
		return 1
	}
	appLog.Info("working directory ready", "dir", store.Dir())

	device, err := automation.NewDriver(conf.Automation.Driver, runtime.GOOS, nil)
	if err != nil {
		appLog.Error("no desktop automation available", err)
		return 1
	}
	replayer := desktop.New(newScheduler(conf.Automation, device), conf.Automation)

	browser, err := chat.Open(ctx, conf.Chat)
	if err != nil {
		appLog.Error("failed to open chat client", err)
		return 1
	}
	defer browser.Close()

	if err := browser.SelectConversation(ctx); err != nil {
		appLog.Error("failed to open conversation", err, "chat", conf.Chat.Name)
		return 1
	}

	p, err := pipeline.New(pipeline.Deps{
		Locator:    browser,
		Capturer:   capture.New(browser, store, conf.Chat.CaptureSettle, conf.Image.MaxEdge, conf.Image.Quality),
		Extractor:  extract.New(extract.NewClient(conf.Extraction, apiKey), conf.Extraction),
		Normalizer: normalize.New(loc),
		Calendar:   replayer,
		Exporter:   ics.NewExporter(store, loc),
		Publisher:  confirm.New(replayer, browser, conf.Chat.App),
	})
	if err != nil {
		appLog.Error("failed to build pipeline", err)
		return 1
	}

	rep, err := p.Run(ctx)

	// Leave the confirmation time to go out before the browser closes.
	time.Sleep(conf.CloseDelay)

	return exitCode(rep, err)
}

// newScheduler picks the automation strategy from config.
func newScheduler(cfg config.AutomationConfig, device automation.Device) automation.Scheduler {
	clip := automation.SystemClipboard{}
	if cfg.Strategy == "poll" {
		return automation.NewPolling(device, clip, device, cfg.PollInterval, cfg.PollTimeout)
	}
	appLog.Warn("desktop automation is open-loop: slow or busy machines can misdirect keystrokes without any error",
		"strategy", cfg.Strategy)
	return automation.NewFixedDelay(device, clip)
}

// exitCode maps a run to the process status: 0 for DONE and clean aborts,
// 1 for faults.
func exitCode(rep *pipeline.Report, err error) int {
	if err != nil {
		appLog.Error("run failed", err)
		return 1
	}
	if rep.Aborted() {
		appLog.Warn("run aborted, nothing was created", "run", rep.RunID, "reason", rep.AbortKind)
		return 0
	}
	if perr := rep.PublishErr(); perr != nil {
		appLog.Warn("event created but confirmation was not sent", "run", rep.RunID, "err", perr)
	}
	appLog.Info("posteragent done", "run", rep.RunID, "title", rep.Record.Title, "date", rep.Record.DateStr)
	return 0
}

// saveKey copies the API key from the environment into the OS keyring.
func saveKey() int {
	if err := credentials.StoreAPIKey(os.Getenv(credentials.EnvAPIKey)); err != nil {
		appLog.Error("failed to store API key", err, "env", credentials.EnvAPIKey)
		return 1
	}
	appLog.Info("API key stored in keyring")
	return 0
}

func parseFlags(fs *flag.FlagSet, args []string) (flagConfig, error) {
	var cfg flagConfig

	fs.StringVar(&cfg.configPath, "config", config.DefaultPath, "Path to config file")
	fs.StringVar(&cfg.chatName, "chat", "", "Conversation to read the poster from (overrides config if set)")
	fs.BoolVar(&cfg.headless, "headless", false, "Run the browser headless (overrides config if set)")
	fs.BoolVar(&cfg.saveKey, "save-key", false, "Store $OPENAI_API_KEY in the OS keyring and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return cfg, nil
}
