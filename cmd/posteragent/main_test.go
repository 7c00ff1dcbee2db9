package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posteragent/internal/automation"
	"posteragent/internal/config"
	"posteragent/internal/pipeline"
)

type nopDevice struct{}

func (nopDevice) Click(context.Context, int, int) error                 { return nil }
func (nopDevice) KeyCombo(context.Context, ...string) error             { return nil }
func (nopDevice) TypeText(context.Context, string, time.Duration) error { return nil }
func (nopDevice) FrontmostApp(context.Context) (string, error)          { return "", nil }

func TestNewScheduler(t *testing.T) {
	cfg := config.DefaultConfig().Automation
	assert.IsType(t, &automation.FixedDelay{}, newScheduler(cfg, nopDevice{}))

	cfg.Strategy = "poll"
	s := newScheduler(cfg, nopDevice{})
	if assert.IsType(t, &automation.Polling{}, s) {
		p := s.(*automation.Polling)
		assert.Equal(t, cfg.PollInterval, p.Interval)
		assert.Equal(t, cfg.PollTimeout, p.Timeout)
	}
}

func TestExitCode(t *testing.T) {
	done := &pipeline.Report{Final: pipeline.StageDone}
	aborted := &pipeline.Report{Final: pipeline.StageAborted, AbortKind: pipeline.KindNotFound}
	published := &pipeline.Report{
		Final: pipeline.StageDone,
		Outcomes: []pipeline.Outcome{{
			Stage:  pipeline.StageConfirm,
			Status: pipeline.StatusFail,
			Kind:   pipeline.KindPublish,
			Err:    errors.New("composer missing"),
		}},
	}

	assert.Equal(t, 0, exitCode(done, nil))
	assert.Equal(t, 0, exitCode(aborted, nil))
	assert.Equal(t, 0, exitCode(published, nil))
	assert.Equal(t, 1, exitCode(&pipeline.Report{Final: pipeline.StageCalendarCommit}, errors.New("fault")))
}

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("posteragent", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlags(t *testing.T) {
	got, err := parseFlags(newFlagSet(), nil)
	require.NoError(t, err)
	assert.Equal(t, flagConfig{configPath: config.DefaultPath}, got)

	got, err = parseFlags(newFlagSet(), []string{"-config", "/tmp/p.yaml", "-chat", "Events", "-headless", "-save-key"})
	require.NoError(t, err)
	assert.Equal(t, flagConfig{configPath: "/tmp/p.yaml", chatName: "Events", headless: true, saveKey: true}, got)
}

func TestParseFlagsRejectsExtras(t *testing.T) {
	_, err := parseFlags(newFlagSet(), []string{"-verbose"})
	assert.Error(t, err)

	_, err = parseFlags(newFlagSet(), []string{"poster.png"})
	assert.ErrorContains(t, err, "unexpected arguments")
}
