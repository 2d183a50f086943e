package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// bufferSyncer is a console sink for tests.
type bufferSyncer struct{ bytes.Buffer }

func (b *bufferSyncer) Sync() error { return nil }

// syncLogger flushes logger; stdout and stderr return "invalid argument" on
// Linux, which is expected.
func syncLogger(t testing.TB, logger *Logger) {
	t.Helper()
	if err := logger.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") {
		t.Logf("Sync() warning: %v", err)
	}
}

func readJSONLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()
	var entries []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		entries = append(entries, m)
	}
	return entries
}

func TestNewLoggerWithConfig_Production(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "cvbridge.log")
	console := &bufferSyncer{}

	logger, err := NewLoggerWithConfig(Config{FilePath: logPath, Console: console})
	if err != nil {
		t.Fatalf("NewLoggerWithConfig() error: %v", err)
	}
	if logger.IsDevelopment() || logger.Level() != zapcore.InfoLevel {
		t.Errorf("production logger: dev=%t level=%v", logger.IsDevelopment(), logger.Level())
	}
	if logger.LogFilePath() != logPath {
		t.Errorf("LogFilePath() = %q", logger.LogFilePath())
	}

	logger.Debug("hidden")
	logger.Info("converted", zap.String("op", "cvtColor"), ImageField("output", ImageInfo{Width: 2, Height: 1, Channels: 1}))
	syncLogger(t, logger)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	entries := readJSONLines(t, data)
	if len(entries) != 1 {
		t.Fatalf("file has %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e[FieldMessage] != "converted" || e[FieldLevel] != "info" || e["op"] != "cvtColor" {
		t.Errorf("file entry = %v", e)
	}
	if out, ok := e["output"].(map[string]any); !ok || out["width"] != float64(2) {
		t.Errorf("output field = %v", e["output"])
	}
	if _, ok := e[FieldCaller]; !ok {
		t.Error("entry has no caller")
	}

	// Production console output is JSON too.
	if got := readJSONLines(t, console.Bytes()); len(got) != 1 {
		t.Errorf("console has %d entries, want 1", len(got))
	}
}

func TestNewLoggerWithConfig_Development(t *testing.T) {
	console := &bufferSyncer{}
	logger, err := NewLoggerWithConfig(Config{Development: true, Console: console})
	if err != nil {
		t.Fatalf("NewLoggerWithConfig() error: %v", err)
	}
	if logger.Level() != zapcore.DebugLevel || logger.LogFilePath() != "" {
		t.Errorf("development logger: level=%v path=%q", logger.Level(), logger.LogFilePath())
	}

	logger.Named("pipeline").Debug("step completed", zap.Int("index", 1))
	out := console.String()
	for _, want := range []string{"DEBUG", "pipeline", "step completed", `"index": 1`} {
		if !strings.Contains(out, want) {
			t.Errorf("console output %q does not contain %q", out, want)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("custom console writer should not be coloured")
	}
}

func TestLevelOverride(t *testing.T) {
	console := &bufferSyncer{}
	logger, _ := NewLoggerWithConfig(Config{Development: true, Level: "warn", Console: console})

	logger.Info("quiet")
	logger.Warn("loud")
	if strings.Contains(console.String(), "quiet") || !strings.Contains(console.String(), "loud") {
		t.Errorf("console = %q", console.String())
	}

	logger.SetLevel(zapcore.ErrorLevel)
	child := logger.With(zap.String("k", "v"))
	child.Warn("suppressed")
	if strings.Contains(console.String(), "suppressed") {
		t.Error("SetLevel did not apply to child loggers")
	}
}

func TestNewLoggerReadsEnvLevel(t *testing.T) {
	t.Setenv(LevelEnvVar, "error")
	logger, err := NewLogger(false, "")
	if err != nil {
		t.Fatalf("NewLogger() error: %v", err)
	}
	if logger.Level() != zapcore.ErrorLevel {
		t.Errorf("Level() = %v, want error", logger.Level())
	}
}

func TestZapKeepsCaller(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := &Logger{zap: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), level: zap.NewAtomicLevel()}

	logger.Zap().Info("direct")
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	if !strings.HasSuffix(entries[0].Caller.File, "logger_test.go") {
		t.Errorf("caller = %s, want this test file", entries[0].Caller.File)
	}
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.Error("ignored")
	if err := logger.Sync(); err != nil {
		t.Errorf("Sync() error: %v", err)
	}
	var nilLogger *Logger
	if err := nilLogger.Sync(); err != nil {
		t.Errorf("nil Sync() error: %v", err)
	}
}

func TestTimingFields(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fields := TimingFields(start, start.Add(1500*time.Millisecond))
	if len(fields) != 2 || fields[1].Key != "duration" || time.Duration(fields[1].Integer) != 1500*time.Millisecond {
		t.Errorf("TimingFields() = %+v", fields)
	}
}
