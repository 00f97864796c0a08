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

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()
	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		SetFormat("text")
		SetLevel("INFO")
	}

	return buf, cleanup
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	return entry
}

// ============================================================================
// Levels
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{"DEBUG", []string{"dbg", "inf", "wrn", "err"}, nil},
		{"INFO", []string{"inf", "wrn", "err"}, []string{"dbg"}},
		{"WARN", []string{"wrn", "err"}, []string{"dbg", "inf"}},
		{"ERROR", []string{"err"}, []string{"dbg", "inf", "wrn"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)
			Debug("dbg")
			Info("inf")
			Warn("wrn")
			Error("err")

			out := buf.String()
			for _, msg := range tt.visible {
				assert.Contains(t, out, "] "+msg)
			}
			for _, msg := range tt.hidden {
				assert.NotContains(t, out, "] "+msg)
			}
		})
	}
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("warn")
	SetLevel("chatty")
	Info("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

// ============================================================================
// Text format
// ============================================================================

func TestTextFormat(t *testing.T) {
	t.Run("LayoutAndFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		Info("directory created", Path("/lustre/dept/proj"), Mode(0o2770))

		out := buf.String()
		assert.Contains(t, out, "[INFO] directory created")
		assert.Contains(t, out, "path=/lustre/dept/proj")
		assert.Contains(t, out, "mode=2770")
		assert.True(t, strings.HasSuffix(out, "\n"))
	})

	t.Run("QuotesValuesWithBlanks", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		Info("running", Command("lfs project -p 1001 -s /a"), "empty", "")

		out := buf.String()
		assert.Contains(t, out, `command="lfs project -p 1001 -s /a"`)
		assert.Contains(t, out, `empty=""`)
	})

	t.Run("SkipsNilError", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		Info("done", Err(nil))
		assert.NotContains(t, buf.String(), "error=")
	})

	t.Run("GroupsArePrefixed", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		With("quota", "x").WithGroup("set").Info("applied", "bytes", "1G")
		Info("nested", slog.Group("q", "bytes", "1G"))

		out := buf.String()
		assert.Contains(t, out, "set.bytes=1G")
		assert.Contains(t, out, "q.bytes=1G")
	})
}

// ============================================================================
// JSON format
// ============================================================================

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	Info("quota set", ProjectID(1001), ByteQuota("10T"), InodeQuota("1M"), Outcome("applied"))

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "quota set", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, float64(1001), entry["project_id"])
	assert.Equal(t, "10T", entry["byte_quota"])
	assert.Equal(t, "1M", entry["inode_quota"])
	assert.Equal(t, "applied", entry["outcome"])
}

func TestFormatSwitching(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	Info("first")
	SetFormat("yaml") // ignored
	Info("second")
	SetFormat("TEXT")
	Info("third")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "{"))
	assert.True(t, strings.HasPrefix(lines[1], "{"))
	assert.True(t, strings.HasPrefix(lines[2], "["))
}

// ============================================================================
// Context
// ============================================================================

func TestContextLogging(t *testing.T) {
	t.Run("InjectsRunFields", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetFormat("json")

		lc := NewLogContext("run-1").WithOperation("projects").WithTarget("/lustre/a/b").WithDryRun(true)
		ctx := WithContext(context.Background(), lc)

		InfoCtx(ctx, "step", Action("chmod"))

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "run-1", entry[KeyRunID])
		assert.Equal(t, "projects", entry[KeyOperation])
		assert.Equal(t, "/lustre/a/b", entry[KeyTarget])
		assert.Equal(t, true, entry[KeyDryRun])
		assert.Equal(t, "chmod", entry[KeyAction])
	})

	t.Run("OmitsDryRunWhenOff", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()
		SetFormat("json")

		ctx := WithContext(context.Background(), NewLogContext("run-2"))
		WarnCtx(ctx, "careful")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "run-2", entry[KeyRunID])
		assert.NotContains(t, entry, KeyDryRun)
		assert.NotContains(t, entry, KeyTarget)
	})

	t.Run("NilContextHandled", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		//nolint:staticcheck // nil context is tolerated on purpose
		require.NotPanics(t, func() { ErrorCtx(nil, "no context") })
		assert.Contains(t, buf.String(), "no context")
	})

	t.Run("DebugCtxFiltered", func(t *testing.T) {
		buf, cleanup := captureOutput()
		defer cleanup()

		DebugCtx(context.Background(), "quiet")
		assert.Empty(t, buf.String())
	})
}

func TestLogContext(t *testing.T) {
	t.Run("NewLogContext", func(t *testing.T) {
		lc := NewLogContext("abc")
		assert.Equal(t, "abc", lc.RunID)
		assert.False(t, lc.StartTime.IsZero())
		assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)
	})

	t.Run("WithersDoNotMutate", func(t *testing.T) {
		lc := NewLogContext("abc")
		lc2 := lc.WithTarget("/x").WithOperation("workdirs")

		assert.Equal(t, "/x", lc2.Target)
		assert.Equal(t, "workdirs", lc2.Operation)
		assert.Empty(t, lc.Target)
		assert.Empty(t, lc.Operation)
	})

	t.Run("NilSafe", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithTarget("/x"))
		assert.Zero(t, lc.DurationMs())
		assert.Nil(t, FromContext(context.Background()))
	})
}

// ============================================================================
// Fields
// ============================================================================

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "0700", Mode(0o700).Value.String())
	assert.Equal(t, "2770", Mode(0o2770).Value.String())
	assert.Equal(t, KeyCommand, Command("ls").Key)
	assert.Equal(t, "", Err(nil).Key)

	attr := Err(errors.New("boom"))
	assert.Equal(t, KeyError, attr.Key)
	assert.Equal(t, "boom", attr.Value.String())

	attr = ConfigFile("/etc/clusterstor/site.yaml")
	assert.Equal(t, KeyConfig, attr.Key)
	assert.Equal(t, "/etc/clusterstor/site.yaml", attr.Value.String())
}

// ============================================================================
// Concurrency and init
// ============================================================================

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				Info("worker", "n", n, "line", j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
}

func TestInit(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		_, cleanup := captureOutput()
		defer cleanup()

		path := filepath.Join(t.TempDir(), "run.log")
		require.NoError(t, Init(Config{Level: "debug", Format: "text", Output: path, Color: "never"}))
		Debug("to file", Path("/a"))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "to file path=/a")
		assert.NotContains(t, string(data), colorReset)
	})

	t.Run("BadFile", func(t *testing.T) {
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "run.log")})
		assert.ErrorContains(t, err, "failed to open log file")
	})

	t.Run("ForcedColor", func(t *testing.T) {
		buf := new(bytes.Buffer)
		InitWithWriter(buf, "INFO", "text", false)
		defer func() {
			mu.Lock()
			output = os.Stdout
			useColor = false
			mu.Unlock()
			reconfigure()
		}()

		require.NoError(t, Init(Config{Color: "always"}))
		Warn("colored")
		assert.Contains(t, buf.String(), colorYellow)
	})
}

func BenchmarkLogCtx(b *testing.B) {
	buf := new(bytes.Buffer)
	InitWithWriter(buf, "DEBUG", "json", false)

	ctx := WithContext(context.Background(), NewLogContext("bench").WithOperation("projects"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		InfoCtx(ctx, "step", Action("setquota"), "count", i)
	}
}
