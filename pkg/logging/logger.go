package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// ConsoleLogger returns a text logger writing to stderr, leaving stdout free
// for command output.
func ConsoleLogger(level logrus.Level) *logrus.Logger {
	return NewLogger(os.Stderr, level)
}

func NewLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return logger
}
