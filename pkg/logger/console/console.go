// Package console implements logger.LoggerInstance on top of charmbracelet/log.
package console

import (
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleLogger writes structured log lines to stderr.
type ConsoleLogger struct {
	logger *log.Logger
}

// Params configures a ConsoleLogger.
type Params struct {
	Debug bool
}

// New creates a console logger writing to stderr at INFO level, or DEBUG
// when Params.Debug is set.
func New(params Params) *ConsoleLogger {
	level := log.InfoLevel
	if params.Debug {
		level = log.DebugLevel
	}
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return &ConsoleLogger{logger: l}
}

func (c *ConsoleLogger) Log(message string, keyvals ...any) { c.logger.Print(message, keyvals...) }

func (c *ConsoleLogger) Info(message string, keyvals ...any) { c.logger.Info(message, keyvals...) }

func (c *ConsoleLogger) Warn(message string, keyvals ...any) { c.logger.Warn(message, keyvals...) }

func (c *ConsoleLogger) Error(message string, keyvals ...any) { c.logger.Error(message, keyvals...) }

func (c *ConsoleLogger) Debug(message string, keyvals ...any) { c.logger.Debug(message, keyvals...) }

func (c *ConsoleLogger) Fatal(message string, keyvals ...any) { c.logger.Fatal(message, keyvals...) }
