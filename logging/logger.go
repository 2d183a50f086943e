// Package logging builds the zap logger used by the command-line tool: a
// console core on stderr teed with a rotated JSON file.
package logging

import (
	"os"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger's outputs.
type Config struct {
	// Development switches the console to human-readable output at debug level.
	Development bool

	// Level overrides the mode's default level when it names a level.
	Level string

	// FilePath is the rotated JSON log file. Empty disables the file output.
	FilePath string

	// File holds rotation settings; zero fields take defaults.
	File FileWriterConfig

	// Console receives console output. Nil means stderr.
	Console zapcore.WriteSyncer
}

// Logger wraps a zap.Logger together with how it was configured.
//
// Example:
//
//	logger, err := logging.NewLogger(true, "cvbridge.log")
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//	logger.Info("pipeline loaded", zap.String("name", p.Name))
type Logger struct {
	zap           *zap.Logger
	level         zap.AtomicLevel
	isDevelopment bool
	logFilePath   string
}

// NewLogger creates a logger writing to stderr and, when logFilePath is set,
// to a rotated JSON file. The level comes from CVBRIDGE_LOG_LEVEL, else debug
// in development and info otherwise.
func NewLogger(isDevelopment bool, logFilePath string) (*Logger, error) {
	return NewLoggerWithConfig(Config{
		Development: isDevelopment,
		Level:       os.Getenv(LevelEnvVar),
		FilePath:    logFilePath,
		File:        DefaultFileWriterConfig(),
	})
}

// NewLoggerWithConfig creates a logger from cfg.
func NewLoggerWithConfig(cfg Config) (*Logger, error) {
	level := zap.NewAtomicLevelAt(ParseLogLevelString(cfg.Level, defaultLevel(cfg.Development)))

	console := cfg.Console
	colored := false
	if console == nil {
		console = zapcore.Lock(os.Stderr)
		colored = !color.NoColor
	}

	var consoleEncoder zapcore.Encoder
	if cfg.Development {
		consoleEncoder = zapcore.NewConsoleEncoder(NewConsoleEncoderConfig(colored))
	} else {
		consoleEncoder = zapcore.NewJSONEncoder(NewEncoderConfig())
	}
	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, console, level)}

	if cfg.FilePath != "" {
		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(NewEncoderConfig()),
			NewFileWriterWithConfig(cfg.FilePath, cfg.File),
			level,
		)
		cores = append(cores, fileCore)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddCallerSkip(1)}
	if cfg.Development {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	return &Logger{
		zap:           zap.New(zapcore.NewTee(cores...), opts...),
		level:         level,
		isDevelopment: cfg.Development,
		logFilePath:   cfg.FilePath,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zap: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel)}
}

// Sync flushes buffered entries. Call it before exiting.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// Debug logs at DebugLevel.
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

// Info logs at InfoLevel.
func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

// Warn logs at WarnLevel.
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

// Error logs at ErrorLevel.
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	child := *l
	child.zap = l.zap.With(fields...)
	return &child
}

// Named returns a child logger with name appended to the logger name.
func (l *Logger) Named(name string) *Logger {
	child := *l
	child.zap = l.zap.Named(name)
	return &child
}

// Zap returns a *zap.Logger for library packages, which take a plain zap
// logger. The wrapper's caller skip is removed.
func (l *Logger) Zap() *zap.Logger {
	return l.zap.WithOptions(zap.AddCallerSkip(-1))
}

// Level returns the active minimum level.
func (l *Logger) Level() zapcore.Level { return l.level.Level() }

// SetLevel changes the minimum level of this logger and all its children.
func (l *Logger) SetLevel(level zapcore.Level) { l.level.SetLevel(level) }

// IsDevelopment reports whether the logger was built for development.
func (l *Logger) IsDevelopment() bool { return l.isDevelopment }

// LogFilePath returns the log file path, empty when file output is off.
func (l *Logger) LogFilePath() string { return l.logFilePath }
