package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"
)

type Level logging.Level

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelNames = map[string]Level{
	"debug":   Debug,
	"info":    Info,
	"notice":  Notice,
	"warning": Warning,
	"error":   Error,
}

var backendLevels = map[Level]logging.Level{
	Debug:   logging.DEBUG,
	Info:    logging.INFO,
	Notice:  logging.NOTICE,
	Warning: logging.WARNING,
	Error:   logging.ERROR,
}

// The logger format
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	leveledBackend logging.LeveledBackend
	activeLevel    = Notice
)

// The logger interface
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// Create a new named logger. Loggers share the process-wide sink and level.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// Redirect all logger output to sink. The active level is preserved.
func SetSink(sink io.Writer) {
	backend := logging.NewLogBackend(sink, "", 0)
	leveledBackend = logging.AddModuleLevel(logging.NewBackendFormatter(backend, format))
	leveledBackend.SetLevel(backendLevels[activeLevel], "")
	logging.SetBackend(leveledBackend)
}

// Set logger verbosity for all modules.
func SetLevel(level Level) {
	backendLevel, ok := backendLevels[level]
	if !ok {
		return
	}
	activeLevel = level
	leveledBackend.SetLevel(backendLevel, "")
}

// Set logger verbosity for a single named module.
func SetModuleLevel(module string, level Level) {
	if backendLevel, ok := backendLevels[level]; ok {
		leveledBackend.SetLevel(backendLevel, module)
	}
}

// Set per-module verbosity from a list of "module=level" entries.
func SetModuleLevels(entries []string) error {
	for _, entry := range entries {
		sep := strings.LastIndex(entry, "=")
		if sep <= 0 {
			return fmt.Errorf("log: invalid module level %q; expected module=level", entry)
		}
		level, err := ParseLevel(entry[sep+1:])
		if err != nil {
			return err
		}
		SetModuleLevel(strings.TrimSpace(entry[:sep]), level)
	}
	return nil
}

// Parse a level name (debug, info, notice, warning, error).
func ParseLevel(name string) (Level, error) {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Notice, fmt.Errorf("log: unknown level %q", name)
	}
	return level, nil
}

func init() {
	SetSink(os.Stdout)
	SetLevel(Notice)
}
