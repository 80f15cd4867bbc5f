package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultRetentionDays is how long dated log files are kept.
const DefaultRetentionDays = 7

// Options configures New.
type Options struct {
	// Dir receives the JSON log files. Empty disables file logging.
	Dir string
	// Verbose lowers the console level from warn to debug.
	Verbose bool
	// Rotate switches to a new file every day.
	Rotate bool
	// RetentionDays removes older dated files; zero uses the default.
	RetentionDays int
	// Console receives human readable entries; nil means stderr.
	Console io.Writer
}

// Logger wraps the zap logger together with the file it writes to.
type Logger struct {
	*zap.Logger
	file *FileWriter
}

// New builds a logger that tees a console core and, when opts.Dir is set, a
// JSON file core at debug level.
func New(opts Options) (*Logger, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	consoleLevel := zapcore.WarnLevel
	if opts.Verbose {
		consoleLevel = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(console)), consoleLevel),
	}

	l := &Logger{}
	if opts.Dir != "" {
		retention := opts.RetentionDays
		if retention <= 0 {
			retention = DefaultRetentionDays
		}
		if opts.Rotate {
			Cleanup(opts.Dir, retention)
		}

		fw, err := NewFileWriter(opts.Dir, opts.Rotate)
		if err != nil {
			return nil, err
		}
		l.file = fw

		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), fw, zapcore.DebugLevel))
	}

	l.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return l, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// FilePath returns the active log file, or "" without file logging.
func (l *Logger) FilePath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Path()
}

// Close flushes buffered entries and closes the log file.
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
