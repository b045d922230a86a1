// Package logging builds the zap logger used by the symfeat commands.
//
// Everything at the configured level goes to the console. Warnings and errors
// are also written to two rotating files in the log directory: errors.log keeps
// stack traces, errors.short.log does not. Error entries are forwarded to an
// optional Notifier.
package logging

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"symfeat/config"
)

const (
	ErrorsFile      = "errors.log"
	ShortErrorsFile = "errors.short.log"
)

// Notifier receives error-level messages.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// New returns a logger and a function that closes the rotating files.
// notifier may be nil.
func New(cfg config.LogConfig, verbose bool, console io.Writer, notifier Notifier) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	full := &lumberjack.Logger{
		Filename:   filepath.Join(dir, ErrorsFile),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}
	short := &lumberjack.Logger{
		Filename:   filepath.Join(dir, ShortErrorsFile),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	consoleCfg.StacktraceKey = ""

	fileCfg := zap.NewProductionEncoderConfig()
	fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	shortCfg := fileCfg
	shortCfg.StacktraceKey = ""

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(zapcore.AddSync(console)), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(full), zapcore.WarnLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(shortCfg), zapcore.AddSync(short), zapcore.ErrorLevel),
	)

	opts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if notifier != nil {
		opts = append(opts, zap.Hooks(notifyHook(notifier)))
	}

	closeFn := func() error {
		if err := full.Close(); err != nil {
			return err
		}
		return short.Close()
	}
	return zap.New(core, opts...), closeFn, nil
}

func notifyHook(n Notifier) func(zapcore.Entry) error {
	return func(entry zapcore.Entry) error {
		if entry.Level < zapcore.ErrorLevel {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// a failed notification must not turn into a logging failure
		_ = n.Notify(ctx, entry.Message)
		return nil
	}
}
