// Package log provides structured logging for predsql, backed by zerolog.
//
// Two access styles are offered: GetLogger returns the raw zerolog logger for
// callers that want the fluent API, and GetLoggerWithName returns a named
// sugared Logger that accepts alternating key/value pairs, which is what the
// estimator packages use. Field keys shared across the module are defined
// here so log output stays greppable.
package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Shared structured-log field keys.
const (
	OperationKey  = "operation"
	PhaseKey      = "phase"
	SamplesKey    = "samples"
	FeaturesKey   = "features"
	DurationMsKey = "duration_ms"
	ModelNameKey  = "model"
	ComponentKey  = "component"
	PredsKey      = "predictions"
	RowsKey       = "rows"
	TableKey      = "table"
	DialectKey    = "dialect"
)

// Shared values for OperationKey and PhaseKey.
const (
	OperationFit     = "fit"
	OperationPredict = "predict"
	OperationExport  = "export"
	OperationScore   = "score"
	PhaseTraining    = "training"
	PhaseInference   = "inference"
)

// Logger is the sugared logging interface used by estimators and pipeline
// stages. Arguments after the message are alternating keys and values.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	With(keysAndValues ...interface{}) Logger
}

var logger = zerolog.New(consoleWriter()).With().Timestamp().Logger()

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// SetupLogger configures the global logger with the given level
// (trace, debug, info, warn, error). Unknown levels fall back to info.
func SetupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger = zerolog.New(consoleWriter()).Level(lvl).With().Timestamp().Logger()
}

// GetLogger returns the raw zerolog logger for fluent-style call sites.
func GetLogger() *zerolog.Logger {
	return &logger
}

// GetLoggerWithName returns a named sugared logger.
func GetLoggerWithName(name string) Logger {
	return &namedLogger{zl: logger.With().Str("logger", name).Logger()}
}

// LogError logs err at error level with the given message.
func LogError(err error, msg string) {
	logger.Error().Err(err).Msg(msg)
}

type namedLogger struct {
	zl zerolog.Logger
}

func (l *namedLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *namedLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info().Fields(keysAndValues).Msg(msg)
}

func (l *namedLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn().Fields(keysAndValues).Msg(msg)
}

func (l *namedLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error().Fields(keysAndValues).Msg(msg)
}

func (l *namedLogger) With(keysAndValues ...interface{}) Logger {
	return &namedLogger{zl: l.zl.With().Fields(keysAndValues).Logger()}
}
