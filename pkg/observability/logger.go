package observability

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a text logger at the named level ("debug", "info", ...).
// An empty level means info.
func NewLogger(level string, output io.Writer) (*logrus.Logger, error) {
	if output == nil {
		output = os.Stderr
	}
	if level == "" {
		level = "info"
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	log := logrus.New()
	log.SetOutput(output)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableLevelTruncation: true,
	})
	return log, nil
}
