package commands

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 30
)

var logFileWriter *lumberjack.Logger

// InitLogging configures zerolog. Console output goes to stderr so it does not
// pollute stdout, which carries command output. When logFile is set, JSON
// lines are also appended to a rotated log file.
func InitLogging(verbose bool, logFile string) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	CloseLogging()
	if logFile != "" {
		logFileWriter = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		}
		out = zerolog.MultiLevelWriter(out, logFileWriter)
	}
	log.Logger = log.Output(out)
}

// CloseLogging releases the log file opened by InitLogging, if any.
func CloseLogging() {
	if logFileWriter == nil {
		return
	}
	_ = logFileWriter.Close()
	logFileWriter = nil
}
