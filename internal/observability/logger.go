package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger builds the structured console logger used for request logging
// and installs it as the zerolog global.
func InitLogger(app string) zerolog.Logger {
	return InitLoggerTo(os.Stdout, app)
}

func InitLoggerTo(out io.Writer, app string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	logger := zerolog.New(output).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
