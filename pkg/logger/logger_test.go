package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"", LevelInfo},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.name)
		be.Err(t, err, nil)
		be.Equal(t, got, tc.want)
	}
	_, err := ParseLevel("loud")
	be.True(t, err != nil)
}

func TestInitHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := Init(Config{Level: LevelInfo, Format: "json", Output: &buf})
	be.Err(t, err, nil)
	t.Cleanup(func() { defaultLogger = nil })

	log.Debug("hidden")
	Info("unit compiled", "unit", 3)
	out := buf.String()
	be.True(t, !strings.Contains(out, "hidden"))
	be.True(t, strings.Contains(out, `"msg":"unit compiled"`))
	be.True(t, strings.Contains(out, `"unit":3`))
}

func TestInitRejectsUnknownFormat(t *testing.T) {
	_, err := Init(Config{Format: "xml"})
	be.True(t, err != nil)
}

func TestDefaultWithoutInitDiscards(t *testing.T) {
	defaultLogger = nil
	Info("nobody listens")
	be.True(t, Default() != nil)
	be.True(t, With("k", "v") != nil)
}

func TestInitClosesPreviousLogFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")
	t.Cleanup(func() {
		Close()
		defaultLogger = nil
	})

	_, err := Init(Config{Level: LevelInfo, LogFile: first})
	be.Err(t, err, nil)
	Info("to first")
	firstFile := logFile

	_, err = Init(Config{Level: LevelInfo, LogFile: second})
	be.Err(t, err, nil)
	Info("to second")
	_, err = firstFile.WriteString("late\n")
	be.Err(t, err, os.ErrClosed)

	be.Err(t, Close(), nil)
	be.True(t, logFile == nil)
	be.Err(t, Close(), nil)

	data, err := os.ReadFile(first)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(string(data), "to first"))
	be.True(t, !strings.Contains(string(data), "to second"))
	data, err = os.ReadFile(second)
	be.Err(t, err, nil)
	be.True(t, strings.Contains(string(data), "to second"))
}
