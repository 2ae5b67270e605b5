package logger

import (
	"go.uber.org/zap"
)

// Reporter records failures that are intentionally not shown to the end user.
// Most mutation paths swallow backend errors after reporting them here.
type Reporter interface {
	Report(op string, err error, fields ...zap.Field)
}

// ZapReporter writes reports as error-level log entries.
type ZapReporter struct {
	log *zap.Logger
}

func NewReporter(log *zap.Logger) *ZapReporter {
	if log == nil {
		log = zap.NewNop()
	}
	return &ZapReporter{log: log.Named("silent")}
}

func (r *ZapReporter) Report(op string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	r.log.Error(op, append(fields, zap.Error(err))...)
}

// Nop discards every report.
type Nop struct{}

func (Nop) Report(string, error, ...zap.Field) {}
