package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/fragcache"
)

var _ fragcache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every entry with component=fragcache.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "fragcache")}
}

func (l LogrusLogger) Debug(msg string, f fragcache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f fragcache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f fragcache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f fragcache.Fields) { l.with(f).Error(msg) }

// with routes an "err" field through WithError so hooks and formatters see
// it under logrus.ErrorKey.
func (l LogrusLogger) with(f fragcache.Fields) *logrus.Entry {
	e := l.E
	if len(f) == 0 {
		return e
	}
	fields := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			e = e.WithError(err)
			continue
		}
		fields[k] = v
	}
	return e.WithFields(fields)
}
