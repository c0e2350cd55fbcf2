// Package log configures the process wide slog logger.
package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/dotse/slug"
	sentryslog "github.com/getsentry/sentry-go/slog"
	slogmulti "github.com/samber/slog-multi"
)

type Level string

const (
	Debug Level = "debug"
	Info  Level = "info"
	Warn  Level = "warn"
	Error Level = "error"
)

// ToSlogLevel maps our levels to the equivalent slog level.
func ToSlogLevel(level Level) slog.Level {
	switch level {
	case Debug:
		return slog.LevelDebug
	case Info:
		return slog.LevelInfo
	case Warn:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

var ErrLogFile = errors.New("failed to open log file")

// Options controls where log records go. Console receives every record even when a file is
// set so batch progress stays visible. A nil Console means stderr.
type Options struct {
	Level   Level
	File    string
	Console io.Writer
	Sentry  bool
	Release string
}

// Setup installs the default logger and returns a func that closes the log file, if any.
// The log file is appended to so successive runs keep their history.
func Setup(ctx context.Context, opts Options) (func(), error) {
	handlerOpts := slug.HandlerOptions{
		HandlerOptions: slog.HandlerOptions{Level: ToSlogLevel(opts.Level)},
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	handlers := []slog.Handler{slug.NewHandler(handlerOpts, console)}
	closer := func() {}

	if opts.File != "" {
		logFile, errOpen := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if errOpen != nil {
			return nil, errors.Join(errOpen, ErrLogFile)
		}

		closer = func() { Closer(logFile) }
		handlers = append(handlers, slog.NewJSONHandler(logFile, &handlerOpts.HandlerOptions))
	}

	if opts.Sentry {
		handlers = append(handlers, sentryslog.Option{
			EventLevel: []slog.Level{slog.LevelWarn, slog.LevelError},
			AddSource:  true,
		}.NewSentryHandler(ctx))
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	if opts.Release != "" {
		logger = logger.With(slog.String("release", opts.Release))
	}

	slog.SetDefault(logger)

	return closer, nil
}

func ErrAttr(err error) slog.Attr {
	return slog.Any("reason", err)
}

func Closer(closer io.Closer) {
	if errClose := closer.Close(); errClose != nil {
		slog.Error("Failed to close", ErrAttr(errClose))
	}
}
