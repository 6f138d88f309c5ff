// Package logging provides the run logger: every event carries a short status
// tag and goes to two sinks, an append-only JSON lines file and a human
// readable console stream.
//
// The logger is constructed once per run and passed to the components that
// need it; Close flushes and releases the file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Status tags a log event.
type Status string

const (
	StatusSuccess  Status = "SUCCESS"  // data source fetched
	StatusError    Status = "ERROR"    // non-fatal component error
	StatusWarning  Status = "WARNING"  // suspicious configuration or data
	StatusEngine   Status = "ENGINE"   // classification setup
	StatusSource   Status = "GSHEETS"  // spreadsheet access
	StatusBrowser  Status = "BROWSER"  // browser lifecycle
	StatusWaiting  Status = "WAITING"  // operator action required
	StatusSending  Status = "SENDING"  // message about to be submitted
	StatusDone     Status = "DONE"     // message submitted
	StatusPreview  Status = "PREVIEW"  // message rendered, not sent
	StatusSkipping Status = "SKIPPING" // row or contact intentionally not sent
	StatusFailure  Status = "FAILURE"  // per-destination delivery failure
	StatusFinished Status = "FINISHED" // run completed
	StatusHalted   Status = "HALTED"   // run stopped before delivery
	StatusCritical Status = "CRITICAL" // unrecovered failure
)

const statusKey = "status"

// Level maps a status to the zap level it is logged at.
func (s Status) Level() zapcore.Level {
	switch s {
	case StatusError, StatusFailure, StatusHalted, StatusCritical:
		return zapcore.ErrorLevel
	case StatusWarning:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

// Options configures New.
type Options struct {
	File    string        // JSON lines file, appended; "" disables
	Level   zapcore.Level // minimum level for both sinks
	Console bool          // write the human readable stream
	Writer  io.Writer     // console destination, os.Stderr when nil
	RunID   string        // attached to every file entry
}

// Logger is the run logger.
type Logger struct {
	z    *zap.Logger
	file *os.File
}

// New builds a logger writing to the sinks selected in opts.
func New(opts Options) (*Logger, error) {
	var (
		cores []zapcore.Core
		file  *os.File
	)
	level := zap.NewAtomicLevelAt(opts.Level)

	if opts.File != "" {
		if dir := filepath.Dir(opts.File); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", opts.File, err)
		}
		file = f

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "ts"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		var core zapcore.Core = zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level)
		if opts.RunID != "" {
			core = core.With([]zapcore.Field{zap.String("run", opts.RunID)})
		}
		cores = append(cores, core)
	}

	if opts.Console {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		encCfg := zapcore.EncoderConfig{
			TimeKey:          "time",
			MessageKey:       "msg",
			EncodeTime:       zapcore.TimeEncoderOfLayout("[15:04:05]"),
			EncodeDuration:   zapcore.StringDurationEncoder,
			ConsoleSeparator: " ",
			LineEnding:       zapcore.DefaultLineEnding,
		}
		cores = append(cores, statusCore{zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)})
	}

	if len(cores) == 0 {
		return Nop(), nil
	}
	return &Logger{z: zap.New(zapcore.NewTee(cores...)), file: file}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Event logs msg tagged with status.
func (l *Logger) Event(status Status, msg string, fields ...zap.Field) {
	if ce := l.z.Check(status.Level(), msg); ce != nil {
		ce.Write(append([]zap.Field{zap.String(statusKey, string(status))}, fields...)...)
	}
}

// Debug logs msg at debug level without a status tag.
func (l *Logger) Debug(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

// Close flushes buffered entries and closes the log file. Only the logger
// returned by New owns the file; children share it.
func (l *Logger) Close() error {
	_ = l.z.Sync()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// statusCore renders the status field as an aligned message prefix,
// "SENDING    | To: Ana", instead of a trailing field.
type statusCore struct {
	zapcore.Core
}

func (c statusCore) With(fields []zapcore.Field) zapcore.Core {
	return statusCore{c.Core.With(fields)}
}

func (c statusCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c statusCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	rest := fields[:0:0]
	status := ""
	for _, f := range fields {
		if f.Key == statusKey && f.Type == zapcore.StringType {
			status = f.String
			continue
		}
		rest = append(rest, f)
	}
	if status != "" {
		ent.Message = fmt.Sprintf("%-10s | %s", status, ent.Message)
	}
	return c.Core.Write(ent, rest)
}
