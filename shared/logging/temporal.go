package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"
	tlog "go.temporal.io/sdk/log"
)

// TemporalLogger routes Temporal SDK logs through logrus.
type TemporalLogger struct {
	entry logrus.FieldLogger
}

var _ tlog.Logger = (*TemporalLogger)(nil)

func NewTemporalLogger(log logrus.FieldLogger) *TemporalLogger {
	return &TemporalLogger{entry: log.WithField("component", "temporal")}
}

func (l *TemporalLogger) with(keyvals []interface{}) logrus.FieldLogger {
	if len(keyvals) == 0 {
		return l.entry
	}
	fields := make(logrus.Fields, len(keyvals)/2+1)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 == len(keyvals) {
			fields["!badkey"] = key
			break
		}
		fields[key] = keyvals[i+1]
	}
	return l.entry.WithFields(fields)
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) { l.with(keyvals).Debug(msg) }
func (l *TemporalLogger) Info(msg string, keyvals ...interface{})  { l.with(keyvals).Info(msg) }
func (l *TemporalLogger) Warn(msg string, keyvals ...interface{})  { l.with(keyvals).Warn(msg) }
func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) { l.with(keyvals).Error(msg) }
