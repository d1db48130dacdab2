package splitclient

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/splitio/go-toolkit/v5/logging"
)

var _ logging.LoggerInterface = (*SplitLogger)(nil)

// SplitLogger routes Split SDK logs to a *slog.Logger.
//
// Split levels map onto slog levels: Error→Error, Warning→Warn, Info→Info,
// Debug and Verbose→Debug. Records carry "source"="split-sdk".
type SplitLogger struct {
	logger *slog.Logger
}

// NewSplitLogger wraps logger for use as conf.SplitSdkConfig.Logger.
// If logger is nil, slog.Default() is used.
func NewSplitLogger(logger *slog.Logger) *SplitLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SplitLogger{logger: logger.With("source", "split-sdk")}
}

func (l *SplitLogger) Error(msg ...any) {
	l.log(slog.LevelError, msg)
}

func (l *SplitLogger) Warning(msg ...any) {
	l.log(slog.LevelWarn, msg)
}

func (l *SplitLogger) Info(msg ...any) {
	l.log(slog.LevelInfo, msg)
}

func (l *SplitLogger) Debug(msg ...any) {
	l.log(slog.LevelDebug, msg)
}

func (l *SplitLogger) Verbose(msg ...any) {
	l.log(slog.LevelDebug, msg)
}

// log keeps the first argument as the message and attaches the rest as a
// "details" attribute.
func (l *SplitLogger) log(level slog.Level, msg []any) {
	switch len(msg) {
	case 0:
		l.logger.Log(context.Background(), level, "")
	case 1:
		l.logger.Log(context.Background(), level, fmt.Sprint(msg[0]))
	default:
		l.logger.Log(context.Background(), level, fmt.Sprint(msg[0]), "details", msg[1:])
	}
}
