package dispatch

import (
	"context"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/dshills/sigbus/signal"
)

// logSinkOptions is the decoded option set for the log-sink adapter.
type logSinkOptions struct {
	Level   string `mapstructure:"level"`
	Message string `mapstructure:"message"`
}

// LogSink writes a human-readable record for every signal. It always
// succeeds, which makes it useful as a tap on wildcard subscriptions.
// Options:
//
//	level    string  one of debug, info, warn, error (default info)
//	message  string  log message (default "signal")
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-sink adapter. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Validate checks the level option.
func (*LogSink) Validate(opts Options) error {
	o, err := decodeLogSinkOptions(opts)
	if err != nil {
		return err
	}
	if _, ok := logLevel(o.Level); !ok {
		return &OptionsError{Adapter: AdapterLogSink, Reason: "level must be one of debug, info, warn, error"}
	}
	return nil
}

// Deliver logs the signal and returns nil.
func (a *LogSink) Deliver(ctx context.Context, sig *signal.Signal, opts Options) error {
	o, err := decodeLogSinkOptions(opts)
	if err != nil {
		return err
	}
	level, ok := logLevel(o.Level)
	if !ok {
		level = slog.LevelInfo
	}
	msg := o.Message
	if msg == "" {
		msg = "signal"
	}

	a.logger.LogAttrs(ctx, level, msg,
		slog.String("id", sig.ID),
		slog.String("type", sig.Type),
		slog.String("source", sig.Source),
		slog.String("subject", sig.Subject),
		slog.Time("time", sig.Time),
	)
	return nil
}

func logLevel(s string) (slog.Level, bool) {
	switch s {
	case "", "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func decodeLogSinkOptions(opts Options) (logSinkOptions, error) {
	var o logSinkOptions
	if err := mapstructure.Decode(map[string]any(opts), &o); err != nil {
		return o, &OptionsError{Adapter: AdapterLogSink, Reason: err.Error()}
	}
	return o, nil
}
