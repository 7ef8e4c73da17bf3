package utils

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	Reset  = "\033[0m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
)

func ColorText(text, color string) string {
	return color + text + Reset
}

// InitLogger sets the global logger: colored console output in development,
// JSON lines anywhere else.
func InitLogger(development bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if development {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// GetAPIHitter identifies the caller of a request for the access log.
func GetAPIHitter(c *gin.Context) string {
	if id, ok := c.Get("requestID"); ok {
		return fmt.Sprintf("%s (%v)", c.ClientIP(), id)
	}
	return c.ClientIP()
}

func PrintLogInfo(caller *string, statusCode int, functionName string, err *error) {
	who := "Unknown"
	if caller != nil {
		who = *caller
	}

	var event = log.Info()
	switch {
	case statusCode >= http.StatusInternalServerError:
		event = log.Error()
	case statusCode >= http.StatusBadRequest:
		event = log.Warn()
	}
	if err != nil && *err != nil {
		event = event.Err(*err)
	}
	event.Str("caller", who).Int("status", statusCode).Str("function", functionName).Msg("request handled")
}
