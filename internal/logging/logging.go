// Package logging wraps logrus with component-scoped entries and optional
// rotated file output.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields mirrors logrus.Fields so callers don't import logrus directly.
type Fields map[string]interface{}

type Log struct {
	*logrus.Logger
}

type Entry struct {
	*logrus.Entry
}

type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	File   string // empty writes to stderr
	Output io.Writer
}

// New builds a logger from opts. Unknown levels fall back to info.
func New(opts Options) (*Log, error) {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "", "text", "console":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	switch {
	case opts.Output != nil:
		l.SetOutput(opts.Output)
	case opts.File != "":
		l.SetOutput(&lumberjack.Logger{
			Filename: opts.File,
			MaxSize:  100,
			MaxAge:   7,
			Compress: true,
		})
	default:
		l.SetOutput(os.Stderr)
	}

	return &Log{Logger: l}, nil
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *Log {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Log{Logger: l}
}

func (l *Log) WithComponent(component string) *Entry {
	return &Entry{Entry: l.Logger.WithField("component", component)}
}

func (l *Log) WithFields(fields Fields) *Entry {
	return &Entry{Entry: l.Logger.WithFields(logrus.Fields(fields))}
}

func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{Entry: e.Entry.WithFields(logrus.Fields(fields))}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithError(err)}
}
