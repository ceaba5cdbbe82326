package logsvc

import (
	"os"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lanes-app/lanes/core"
	"github.com/lanes-app/lanes/core/user"
)

// RollbarLogger writes structured logs with zap and reports them to rollbar when enabled.
type RollbarLogger struct {
	zl *zap.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(false)
	return &RollbarLogger{zl: newZap(conf)}
}

func newZap(conf *core.Config) *zap.Logger {
	level := zapcore.InfoLevel
	if conf.Debug {
		level = zapcore.DebugLevel
	}
	if conf.TestMode {
		level = zapcore.ErrorLevel
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	if conf.Debug {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	zc := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	// skip the RollbarLogger frames
	return zap.New(zc, zap.AddCaller(), zap.AddCallerSkip(2), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Named returns a logger whose output is tagged with name (e.g. "API", "DB").
func (l *RollbarLogger) Named(name string) *RollbarLogger {
	return &RollbarLogger{zl: l.zl.Named(name)}
}

// Enable turns rollbar reporting on or off. Logs are always written.
func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Sync flushes the buffered logs and waits for pending rollbar reports.
func (l *RollbarLogger) Sync() {
	_ = l.zl.Sync()
	rollbar.Wait()
}

// prepare splits args into rollbar arguments and zap fields.
// expected fmt: msg | error, map[string]interface{}, user.Principal
func (l *RollbarLogger) prepare(msg string, args []interface{}) ([]interface{}, []zap.Field) {
	var prnSet bool
	rbArgs := make([]interface{}, 0, len(args)+1)
	rbArgs = append(rbArgs, msg)
	fields := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch v := arg.(type) {
		case user.Principal:
			// only set one Principal
			if !prnSet && v.IsAuthenticated() {
				rollbar.SetPerson(v.UserID, v.Name, v.Email)
				fields = append(fields, zap.String("user_id", v.UserID))
				prnSet = true
			}
		case error:
			rbArgs = append(rbArgs, v)
			fields = append(fields, zap.Error(v))
		case map[string]interface{}:
			rbArgs = append(rbArgs, v)
			fields = append(fields, zap.Any("extra", v))
		default:
			rbArgs = append(rbArgs, v)
			fields = append(fields, zap.Any("arg", v))
		}
	}
	if !prnSet {
		rollbar.ClearPerson()
	}
	return rbArgs, fields
}

func (l *RollbarLogger) log(level zapcore.Level, msg string, args []interface{}) {
	rbArgs, fields := l.prepare(msg, args)
	switch level {
	case zapcore.DebugLevel:
		rollbar.Debug(rbArgs...)
	case zapcore.InfoLevel:
		rollbar.Info(rbArgs...)
	case zapcore.WarnLevel:
		rollbar.Warning(rbArgs...)
	case zapcore.ErrorLevel:
		rollbar.Error(rbArgs...)
	default:
		rollbar.Critical(rbArgs...)
		rollbar.Wait()
	}
	if ce := l.zl.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(zapcore.DebugLevel, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(zapcore.InfoLevel, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(zapcore.WarnLevel, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(zapcore.ErrorLevel, msg, args) }

// Fatal logs then exits the process.
func (l *RollbarLogger) Fatal(msg string, args ...interface{}) { l.log(zapcore.FatalLevel, msg, args) }
