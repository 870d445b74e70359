// Package logging configures the pipeline's logrus logger.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing human-readable stage logs to w. Verbose
// raises the level to debug.
func New(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}
