package gologger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/sirupsen/logrus"
)

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(name, provider, logger)
}

// Logger adapts a logrus entry to the glog contracts. Variadic args are read
// as key/value pairs; a trailing odd value is kept under "arg".
type Logger struct {
	entry *logrus.Entry
}

// NewLogrus builds a JSON logrus logger writing to out at the given level.
// An empty level means info.
func NewLogrus(out io.Writer, level string) (*Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	base := logrus.New()
	base.SetOutput(out)
	base.SetFormatter(&logrus.JSONFormatter{})
	level = strings.TrimSpace(level)
	if level == "" {
		level = logrus.InfoLevel.String()
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("gologger: %w", err)
	}
	base.SetLevel(parsed)
	return FromLogrus(base), nil
}

func FromLogrus(base *logrus.Logger) *Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &Logger{entry: logrus.NewEntry(base)}
}

func (l *Logger) Trace(msg string, args ...any) { l.log(logrus.TraceLevel, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log(logrus.DebugLevel, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(logrus.InfoLevel, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(logrus.WarnLevel, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(logrus.ErrorLevel, msg, args...) }

// Fatal logs at fatal level and leaves process exit to the caller.
func (l *Logger) Fatal(msg string, args ...any) { l.log(logrus.FatalLevel, msg, args...) }

func (l *Logger) WithContext(ctx context.Context) glog.Logger {
	if l == nil || ctx == nil {
		return l
	}
	return &Logger{entry: l.entry.WithContext(ctx)}
}

func (l *Logger) WithFields(fields map[string]any) glog.Logger {
	if l == nil || len(fields) == 0 {
		return l
	}
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// GetLogger returns a child logger tagged with the component name.
func (l *Logger) GetLogger(name string) glog.Logger {
	if l == nil {
		return glog.Nop()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return l
	}
	return &Logger{entry: l.entry.WithField("logger", name)}
}

func (l *Logger) log(level logrus.Level, msg string, args ...any) {
	if l == nil || l.entry == nil {
		return
	}
	if !l.entry.Logger.IsLevelEnabled(level) {
		return
	}
	entry := l.entry
	if fields := pairsToFields(args); len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Log(level, msg)
}

func pairsToFields(args []any) logrus.Fields {
	if len(args) == 0 {
		return nil
	}
	fields := logrus.Fields{}
	for index := 0; index < len(args); index += 2 {
		if index+1 >= len(args) {
			fields["arg"] = args[index]
			break
		}
		key := strings.TrimSpace(fmt.Sprint(args[index]))
		if key == "" {
			continue
		}
		fields[key] = args[index+1]
	}
	return fields
}

var (
	_ glog.Logger         = (*Logger)(nil)
	_ glog.FieldsLogger   = (*Logger)(nil)
	_ glog.LoggerProvider = (*Logger)(nil)
)
