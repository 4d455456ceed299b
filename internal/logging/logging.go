// Package logging builds the process logger. Info and Warn go to stdout,
// Error and above to stderr. An optional file receives every level.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Stdout and Stderr default to the process streams.
	Stdout zapcore.WriteSyncer
	Stderr zapcore.WriteSyncer
}

// Logger is a zap logger whose level can be changed at runtime.
type Logger struct {
	*zap.Logger
	Level zap.AtomicLevel
	file  *lumberjack.Logger
}

// New builds a Logger from opts.
func New(opts Options) (*Logger, error) {
	level := zap.NewAtomicLevel()
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, fmt.Errorf("parsing log level: %w", err)
		}
	}
	if opts.Stdout == nil {
		opts.Stdout = zapcore.Lock(os.Stdout)
	}
	if opts.Stderr == nil {
		opts.Stderr = zapcore.Lock(os.Stderr)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	console := zapcore.NewConsoleEncoder(encCfg)

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l < zapcore.ErrorLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l >= zapcore.ErrorLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(console, opts.Stdout, low),
		zapcore.NewCore(console, opts.Stderr, high),
	}

	l := &Logger{Level: level}
	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			LocalTime:  true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(l.file), level))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.ErrorOutput(opts.Stderr))
	return l, nil
}

// SetLevel changes the minimum level.
func (l *Logger) SetLevel(s string) error {
	if err := l.Level.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	return nil
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
