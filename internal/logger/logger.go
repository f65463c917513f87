package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with application-specific methods
type Logger struct {
	zerolog.Logger
}

// New creates a new Logger instance writing to stdout
func New(level string, format string) *Logger {
	return NewWithWriter(os.Stdout, level, format)
}

// NewWithWriter creates a Logger writing to w
func NewWithWriter(w io.Writer, level string, format string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if format == "text" || format == "console" {
		// Human-readable output for development
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &Logger{Logger: logger}
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent returns a new logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithRunID returns a new logger with the dispatch run ID attached
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		Logger: l.With().Str("run_id", runID).Logger(),
	}
}

// Delivery logs a single delivered message
func (l *Logger) Delivery(recipient, subject string, duration time.Duration) {
	l.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Dur("duration", duration).
		Msg("email delivered")
}
