package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	color.NoColor = true
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() { SetLevel(LevelInfo) })
	return &buf
}

func TestInfoFormatsKeyValues(t *testing.T) {
	buf := capture(t, LevelInfo)

	Info("poster located", "index", 3, "chat", "Me (You)")

	line := buf.String()
	assert.Contains(t, line, "[INFO] poster located")
	assert.Contains(t, line, " index=3")
	assert.Contains(t, line, ` chat="Me (You)"`)
}

func TestErrorPrependsErr(t *testing.T) {
	buf := capture(t, LevelInfo)

	Error("extraction failed", errors.New("boom"), "stage", "EXTRACT")

	assert.Contains(t, buf.String(), "[ERROR] extraction failed err=boom stage=EXTRACT")
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden")
	Info("hidden too")
	Warn("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestOddKVIgnoresTrailingKey(t *testing.T) {
	buf := capture(t, LevelInfo)

	Info("msg", "a", 1, "dangling")

	assert.True(t, strings.HasSuffix(strings.TrimSpace(buf.String()), "msg a=1"))
}
