package stripecheckout

import (
	"fmt"
	"log/slog"
)

// slogLogger routes SDK diagnostics into the service's structured log.
type slogLogger struct{}

func (slogLogger) Debugf(format string, v ...interface{}) {
	slog.Debug("stripe_sdk", "message", fmt.Sprintf(format, v...))
}

func (slogLogger) Infof(format string, v ...interface{}) {
	slog.Debug("stripe_sdk", "message", fmt.Sprintf(format, v...))
}

func (slogLogger) Warnf(format string, v ...interface{}) {
	slog.Warn("stripe_sdk", "message", fmt.Sprintf(format, v...))
}

func (slogLogger) Errorf(format string, v ...interface{}) {
	slog.Error("stripe_sdk", "message", fmt.Sprintf(format, v...))
}
