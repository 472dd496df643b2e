package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a text logger on stderr at the given level. Unknown
// levels fall back to info.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// Banner logs a title between separator lines.
func Banner(log logrus.FieldLogger, format string, args ...any) {
	log.Info("=========================================================")
	log.Infof(format, args...)
	log.Info("=========================================================")
}
