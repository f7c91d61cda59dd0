package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer and restores the previous
// writer, format and level when the test ends.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	origOutput, origColor, origFormat := output, useColor, format
	output, useColor, format = buf, false, "text"
	mu.Unlock()
	origLevel := level.Level()
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output, useColor, format = origOutput, origColor, origFormat
		mu.Unlock()
		level.Set(origLevel)
		reconfigure()
	})
	return buf
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"debug msg", "info msg", "warn msg", "error msg"}, nil},
		{"INFO", []string{"info msg", "warn msg", "error msg"}, []string{"debug msg"}},
		{"WARN", []string{"warn msg", "error msg"}, []string{"debug msg", "info msg"}},
		{"ERROR", []string{"error msg"}, []string{"debug msg", "info msg", "warn msg"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("debug msg")
			Info("info msg")
			Warn("warn msg")
			Error("error msg")

			out := buf.String()
			for _, s := range tt.visible {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.hidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	t.Run("CaseInsensitive", func(t *testing.T) {
		captureOutput(t)
		SetLevel("warn")
		assert.Equal(t, "WARN", GetLevel())
	})

	t.Run("InvalidIgnored", func(t *testing.T) {
		captureOutput(t)
		SetLevel("ERROR")
		SetLevel("LOUD")
		assert.Equal(t, "ERROR", GetLevel())
	})
}

func TestTextFormat(t *testing.T) {
	t.Run("StructuredFields", func(t *testing.T) {
		buf := captureOutput(t)
		Info("core started", KeyState, "running", KeyPID, 42)

		out := buf.String()
		assert.Contains(t, out, "[INFO] core started")
		assert.Contains(t, out, "state=running")
		assert.Contains(t, out, "pid=42")
	})

	t.Run("QuotesValuesWithSpaces", func(t *testing.T) {
		buf := captureOutput(t)
		Warn("check failed", KeyError, "invalid config entry")
		assert.Contains(t, buf.String(), `error="invalid config entry"`)
	})

	t.Run("GroupsPrefixKeys", func(t *testing.T) {
		buf := captureOutput(t)
		With(KeySlug, "mqtt").WithGroup("payload").Info("service data set", "host", "broker")

		out := buf.String()
		assert.Contains(t, out, "slug=mqtt")
		assert.Contains(t, out, "payload.host=broker")
	})

	t.Run("FieldHelpers", func(t *testing.T) {
		buf := captureOutput(t)
		getLogger().LogAttrs(context.Background(), slog.LevelInfo, "job done",
			JobID("abc"), Operation("restart"), Err(nil), Err(errors.New("boom")))

		out := buf.String()
		assert.Contains(t, out, "job_id=abc")
		assert.Contains(t, out, "operation=restart")
		assert.Contains(t, out, "error=boom")
	})
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("json")

	Info("options updated", KeyCount, 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "options updated", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.EqualValues(t, 3, entry["count"])
	assert.Contains(t, entry, "time")
}

func TestSetFormatIgnoresUnknown(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("xml")

	Info("still text")
	assert.True(t, strings.HasPrefix(buf.String(), "["))
}

func TestContextLogging(t *testing.T) {
	t.Run("InjectsFields", func(t *testing.T) {
		buf := captureOutput(t)

		lc := NewLogContext("10.0.0.5").WithJob("job-1", "rebuild").WithSubject("admin")
		ctx := WithContext(context.Background(), lc)
		InfoCtx(ctx, "rebuilding core", KeySafeMode, true)

		out := buf.String()
		assert.Contains(t, out, "job_id=job-1")
		assert.Contains(t, out, "operation=rebuild")
		assert.Contains(t, out, "subject=admin")
		assert.Contains(t, out, "client_ip=10.0.0.5")
		assert.Contains(t, out, "safe_mode=true")
		assert.Less(t, strings.Index(out, "job_id"), strings.Index(out, "safe_mode"))
	})

	t.Run("WithoutLogContext", func(t *testing.T) {
		buf := captureOutput(t)
		WarnCtx(context.Background(), "plain")
		assert.Contains(t, buf.String(), "plain")
	})

	t.Run("NilContext", func(t *testing.T) {
		//nolint:staticcheck // exercising the nil guard
		assert.Nil(t, FromContext(nil))
	})
}

func TestLogContext(t *testing.T) {
	t.Run("CloneIsIndependent", func(t *testing.T) {
		lc := NewLogContext("127.0.0.1")
		clone := lc.WithSubject("addon_a")
		assert.Empty(t, lc.Subject)
		assert.Equal(t, "addon_a", clone.Subject)
		assert.Equal(t, lc.ClientIP, clone.ClientIP)
	})

	t.Run("CloneNil", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Zero(t, lc.DurationMs())
	})

	t.Run("WithJobOnNil", func(t *testing.T) {
		var lc *LogContext
		job := lc.WithJob("j", "start")
		require.NotNil(t, job)
		assert.Equal(t, "start", job.Operation)
	})
}

func TestConcurrentLogging(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Debug("tick", "worker", n, "iteration", j)
				if j%10 == 0 {
					SetLevel("DEBUG")
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 400, strings.Count(buf.String(), "tick"))
}

func TestInit(t *testing.T) {
	t.Run("WritesToFile", func(t *testing.T) {
		captureOutput(t)
		path := filepath.Join(t.TempDir(), "corevisor.log")

		require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
		Info("to file")
		t.Cleanup(func() {
			mu.Lock()
			if closer != nil {
				_ = closer.Close()
				closer = nil
			}
			mu.Unlock()
		})

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file")
	})

	t.Run("RejectsInvalidLevel", func(t *testing.T) {
		captureOutput(t)
		assert.Error(t, Init(Config{Level: "CHATTY"}))
	})

	t.Run("InitWithWriter", func(t *testing.T) {
		captureOutput(t)
		var buf bytes.Buffer
		InitWithWriter(&buf, "DEBUG", "text", false)
		Debug("hello")
		assert.Contains(t, buf.String(), "hello")
	})
}
