// Package logger configures the application's phuslu/log loggers: one
// default logger plus a tagged logger per module, all sharing the writer
// built from the logging configuration.
package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/phuslu/log"

	"edgetrace/internal/config"
)

var (
	// Module-specific loggers.
	modSchedLogger   log.Logger // CPU-time collector
	modMemoryLogger  log.Logger // memory-stall collector
	modThermalLogger log.Logger // thermal collector
	modProcessLogger log.Logger // exec collector
	modHandlerLogger log.Logger // frame router
	modSessionLogger log.Logger // source session manager
)

// parseLogLevel converts a string log level to log.Level.
func parseLogLevel(levelStr string) log.Level {
	switch levelStr {
	case "trace":
		return log.TraceLevel
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// GlogFormatter implements a glog-style text format, built with a buffer
// rather than fmt.Fprintf for performance.
type GlogFormatter struct{}

// Formatter builds the log entry in glog format.
func (f GlogFormatter) Formatter(w io.Writer, a *log.FormatterArgs) (int, error) {
	var buf bytes.Buffer

	if len(a.Level) > 0 {
		buf.WriteByte(a.Level[0] - 32) // uppercase first letter
	} else {
		buf.WriteByte('?')
	}

	buf.WriteString(a.Time)
	buf.WriteByte(' ')
	buf.WriteString(a.Goid)
	buf.WriteByte(' ')
	buf.WriteString(a.Caller)
	buf.WriteString("] ")
	buf.WriteString(a.Message)
	buf.WriteByte('\n')

	return w.Write(buf.Bytes())
}

// createConsoleWriter builds the console side of the log output.
func createConsoleWriter(cfg config.LoggingConfig) log.Writer {
	var baseWriter io.Writer
	switch cfg.Writer {
	case "stdout":
		baseWriter = os.Stdout
	default:
		baseWriter = os.Stderr
	}

	consoleWriter := &log.ConsoleWriter{
		ColorOutput:    cfg.Colors,
		QuoteString:    true,
		EndWithMessage: true,
		Writer:         baseWriter,
	}

	switch cfg.Format {
	case "logfmt":
		consoleWriter.Formatter = log.LogfmtFormatter{TimeField: "time"}.Formatter
	case "glog":
		consoleWriter.Formatter = GlogFormatter{}.Formatter
	}

	var writer log.Writer = consoleWriter
	if cfg.Async {
		return &log.AsyncWriter{ChannelSize: 4096, Writer: writer}
	}
	// ConsoleWriter is not safe for concurrent WriteEntry; serialize it.
	return &safeWriter{w: writer}
}

// createFileWriter builds the rotating file side of the log output.
func createFileWriter(cfg config.LoggingConfig) (log.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, err
	}
	var writer log.Writer = &log.FileWriter{
		Filename:     cfg.File,
		FileMode:     0644,
		MaxSize:      100 * 1024 * 1024,
		MaxBackups:   7,
		LocalTime:    true,
		EnsureFolder: true,
	}
	if cfg.Async {
		writer = &log.AsyncWriter{ChannelSize: 4096, Writer: writer}
	}
	return writer, nil
}

// createWriter assembles the writer stack for the configuration: console
// always, plus an optional file output.
func createWriter(cfg config.LoggingConfig) (log.Writer, error) {
	console := createConsoleWriter(cfg)
	if cfg.File == "" {
		return console, nil
	}
	file, err := createFileWriter(cfg)
	if err != nil {
		return nil, err
	}
	multi := log.MultiEntryWriter{console, file}
	return &multi, nil
}

// safeWriter serializes WriteEntry calls from concurrent goroutines.
type safeWriter struct {
	mu sync.Mutex
	w  log.Writer
}

func (sw *safeWriter) WriteEntry(e *log.Entry) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.WriteEntry(e)
}

func (sw *safeWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if closer, ok := sw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func createLogger(level log.Level, writer log.Writer, module string) log.Logger {
	return log.Logger{
		Level:   level,
		Caller:  0, // disabled for performance
		Writer:  writer,
		Context: log.NewContext(nil).Str("module", module).Value(),
	}
}

// Configure sets up the default logger and the module loggers.
func Configure(cfg config.LoggingConfig) error {
	writer, err := createWriter(cfg)
	if err != nil {
		return err
	}
	level := parseLogLevel(cfg.Level)

	log.DefaultLogger = log.Logger{
		Level:  level,
		Writer: writer,
	}

	modSchedLogger = createLogger(level, writer, "cpu")
	modMemoryLogger = createLogger(level, writer, "memstall")
	modThermalLogger = createLogger(level, writer, "thermal")
	modProcessLogger = createLogger(level, writer, "procexec")
	modHandlerLogger = createLogger(level, writer, "router")
	modSessionLogger = createLogger(level, writer, "session")
	return nil
}

func GetSchedLogger() log.Logger   { return modSchedLogger }
func GetMemoryLogger() log.Logger  { return modMemoryLogger }
func GetThermalLogger() log.Logger { return modThermalLogger }
func GetProcessLogger() log.Logger { return modProcessLogger }
func GetEventLogger() log.Logger   { return modHandlerLogger }
func GetSessionLogger() log.Logger { return modSessionLogger }
