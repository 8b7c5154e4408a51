package pagestore

import "github.com/sirupsen/logrus"

// Logger receives structured lifecycle events from a Store: open/create,
// header-slot selection, startup reclamation, each commit's new epoch, and
// close. A Store created or opened without WithLogger uses a no-op logger,
// so library callers never see unsolicited output unless they opt in.
type Logger interface {
	Infow(msg string, kv ...interface{})
}

// noopLogger discards everything.
type noopLogger struct{}

func (noopLogger) Infow(string, ...interface{}) {}

// LogrusLogger adapts a *logrus.Logger (or *logrus.Entry) to Logger, giving
// callers structured fields instead of bare log.Printf lines.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps l as a Logger.
func NewLogrusLogger(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Infow(msg string, kv ...interface{}) {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields[key] = kv[i+1]
	}
	l.entry.WithFields(fields).Info(msg)
}
