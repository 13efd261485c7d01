// Package logger wraps a global logrus logger. Terminal output goes to
// stderr at the configured level; warnings and errors are additionally
// appended to a persistent log file with timestamps so failed activations
// leave a trail.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log *logrus.Logger

// Init initializes the global logger. level is one of debug/info/warn/error
// (invalid values default to info). logFile, if non-empty, receives
// warn-and-above entries in append mode.
func Init(level, logFile string) error {
	log = logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		log.AddHook(&fileHook{
			writer: f,
			formatter: &logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02T15:04:05Z07:00",
				DisableColors:   true,
			},
		})
	}
	return nil
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *logrus.Logger {
	if log == nil {
		Init("info", "")
	}
	return log
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	Get().Debugf(format, args...)
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	Get().Infof(format, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	Get().Warnf(format, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	Get().Errorf(format, args...)
}

// WithField returns an entry with a single structured field attached.
func WithField(key string, value interface{}) *logrus.Entry {
	return Get().WithField(key, value)
}

// fileHook appends warn-and-above entries to the persistent log file,
// regardless of the terminal log level.
type fileHook struct {
	writer    io.Writer
	formatter logrus.Formatter
}

func (h *fileHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
	}
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(line)
	return err
}
