// Package logging builds the logr.Logger handed to every component.
package logging

import (
	"fmt"
	"io"

	logrusr "github.com/bombsimon/logrusr/v2"
	log_prefixed "github.com/chappjc/logrus-prefix"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Levels accepted by New. "debug" enables V(1) messages, "trace" V(2).
var Levels = []string{"error", "warn", "info", "debug", "trace"}

// New returns a logrus backed logger writing to out.
func New(level, format string, out io.Writer) (logr.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logr.Discard(), fmt.Errorf("log level: %w", err)
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	switch format {
	case FormatText, "":
		l.SetFormatter(&log_prefixed.TextFormatter{
			FullTimestamp: true,
		})
	case FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return logr.Discard(), fmt.Errorf("unknown log format %q", format)
	}

	return logrusr.New(l), nil
}
