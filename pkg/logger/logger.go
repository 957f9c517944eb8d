package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus.Logger with additional functionality
type Logger struct {
	*logrus.Logger
}

// New creates a new logger instance
func New(level string) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)

	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})

	log.SetOutput(os.Stdout)

	return &Logger{Logger: log}
}

// WithFields creates a new logger entry with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.Logger.WithFields(fields)
}

// WithField creates a new logger entry with a single field
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithError creates a new logger entry with an error field
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithError(err)
}

// WithComponent creates a new logger entry with component name field
func (l *Logger) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// WithVisitID creates a new logger entry with visit record ID field
func (l *Logger) WithVisitID(visitID string) *logrus.Entry {
	return l.Logger.WithField("visit_id", visitID)
}

// WithSessionID creates a new logger entry with remote session ID field
func (l *Logger) WithSessionID(sessionID string) *logrus.Entry {
	return l.Logger.WithField("session_id", sessionID)
}

// Transition logs a session lifecycle state transition
func (l *Logger) Transition(visitID string, from, to string) {
	l.Logger.WithFields(logrus.Fields{
		"visit_id": visitID,
		"from":     from,
		"to":       to,
	}).Info("Session state transition")
}

// RemoteCall logs the outcome of a backend call
func (l *Logger) RemoteCall(endpoint string, status int, durationMs int64, err error) {
	entry := l.Logger.WithFields(logrus.Fields{
		"remote":      true,
		"endpoint":    endpoint,
		"status_code": status,
		"duration_ms": durationMs,
	})

	if err != nil {
		entry.WithError(err).Warn("Remote call failed")
	} else {
		entry.Info("Remote call completed")
	}
}
