package utils

import (
	"strings"

	"go.uber.org/zap"
)

// Log is the process-wide logger. It is a no-op until InitLogger runs so
// packages can log from tests without setup.
var Log = zap.NewNop()

// InitLogger builds the zap logger for the given environment.
func InitLogger(env string) error {
	var (
		logger *zap.Logger
		err    error
	)
	if env == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	Log = logger
	zap.ReplaceGlobals(logger)
	return nil
}

// FlushLog writes the accumulated request log as one entry.
func FlushLog(logMessageBuilder *strings.Builder) {
	if logMessageBuilder.Len() == 0 {
		return
	}
	Log.Info(logMessageBuilder.String())
}

// AddToLogMessage appends one step to a request's log accumulator.
func AddToLogMessage(logMessageBuilder *strings.Builder, strToAdd string) {
	if logMessageBuilder.Len() == logMessageBuilder.Cap() {
		logMessageBuilder.Grow(len(strToAdd) + 2)
	}
	logMessageBuilder.WriteString(strToAdd)
	logMessageBuilder.WriteString(";\n")
}
