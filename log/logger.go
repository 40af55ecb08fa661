package log

import (
	"io"
	"os"
	"sync"

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

// The logger format
var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	backendMutex   sync.Mutex
	leveledBackend logging.LeveledBackend
	globalLevel    = logging.NOTICE
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

// Create a new named logger.
func New(name string) Logger {
	return logging.MustGetLogger(name)
}

// Override the backend output sink. The currently configured level is
// preserved.
func SetSink(sink io.Writer) {
	backendMutex.Lock()
	defer backendMutex.Unlock()

	backend := logging.NewLogBackend(sink, "", 0)
	backendWithFormatter := logging.NewBackendFormatter(backend, format)
	leveledBackend = logging.AddModuleLevel(backendWithFormatter)
	leveledBackend.SetLevel(globalLevel, "")
	logging.SetBackend(leveledBackend)
}

// Silence all loggers. Mostly useful for tests and benchmarks.
func Discard() {
	SetSink(io.Discard)
}

// Set logger verbosity for all modules.
func SetLevel(level Level) {
	SetModuleLevel(level, "")
}

// Set logger verbosity for a particular module. An empty module name
// changes the default level.
func SetModuleLevel(level Level, module string) {
	backendMutex.Lock()
	defer backendMutex.Unlock()

	loggerLevel := toBackendLevel(level)
	if module == "" {
		globalLevel = loggerLevel
	}
	leveledBackend.SetLevel(loggerLevel, module)
}

func toBackendLevel(level Level) logging.Level {
	switch level {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	}
	return logging.NOTICE
}

func init() {
	SetSink(os.Stdout)
}
