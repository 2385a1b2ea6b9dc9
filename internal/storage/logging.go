package storage

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

// Severity is the storage client's own log severity.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Level maps the severity onto slog. FATAL is logged as an error; the
// bridge never exits the process on behalf of the storage client.
func (s Severity) Level() slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// LogSink receives log messages emitted by the storage client.
type LogSink func(sev Severity, file string, line int, at time.Time, msg string)

// NewLogSink returns a LogSink that forwards to logger.
func NewLogSink(logger *slog.Logger) LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return func(sev Severity, file string, line int, at time.Time, msg string) {
		LogMessage(logger, sev, file, line, at, msg)
	}
}

// NewRateLimitedLogSink is NewLogSink with INFO messages capped at
// perSecond (with the given burst). Warnings and worse always pass.
func NewRateLimitedLogSink(logger *slog.Logger, perSecond float64, burst int) LogSink {
	sink := NewLogSink(logger)
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(sev Severity, file string, line int, at time.Time, msg string) {
		if sev == SeverityInfo && !limiter.Allow() {
			return
		}
		sink(sev, file, line, at, msg)
	}
}

// LogMessage writes one storage client message to logger, keeping the
// client's source location and timestamp as attributes.
func LogMessage(logger *slog.Logger, sev Severity, file string, line int, at time.Time, msg string) {
	level := sev.Level()
	ctx := context.Background()
	if !logger.Enabled(ctx, level) {
		return
	}
	attrs := []slog.Attr{slog.String("component", "storage-client"), slog.String("severity", sev.String())}
	if file != "" {
		attrs = append(attrs, slog.String("file", filepath.Base(file)), slog.Int("line", line))
	}
	if !at.IsZero() {
		attrs = append(attrs, slog.Time("client_time", at))
	}
	logger.LogAttrs(ctx, level, msg, attrs...)
}
