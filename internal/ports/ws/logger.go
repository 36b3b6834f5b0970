package ws

import (
	"github.com/heroiclabs/nakama-common/runtime"
	"go.uber.org/zap"
)

// ZapLogger adapts a zap SugaredLogger to runtime.Logger so the standalone server logs through
// the same contract as the Nakama module.
type ZapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger builds a production JSON logger, or a console logger when development is set.
func NewZapLogger(development bool) (*ZapLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &ZapLogger{s: l.Sugar()}, nil
}

// WrapZap adapts an existing zap logger.
func WrapZap(l *zap.Logger) *ZapLogger {
	return &ZapLogger{s: l.Sugar()}
}

func (z *ZapLogger) Debug(format string, v ...interface{}) { z.s.Debugf(format, v...) }
func (z *ZapLogger) Info(format string, v ...interface{})  { z.s.Infof(format, v...) }
func (z *ZapLogger) Warn(format string, v ...interface{})  { z.s.Warnf(format, v...) }
func (z *ZapLogger) Error(format string, v ...interface{}) { z.s.Errorf(format, v...) }

func (z *ZapLogger) WithField(key string, v interface{}) runtime.Logger {
	return &ZapLogger{s: z.s.With(key, v)}
}

func (z *ZapLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	args := make([]interface{}, 0, 2*len(fields))
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &ZapLogger{s: z.s.With(args...)}
}

// Fields is not tracked; zap keeps the fields inside its core.
func (z *ZapLogger) Fields() map[string]interface{} {
	return map[string]interface{}{}
}

// Sync flushes buffered log entries.
func (z *ZapLogger) Sync() error {
	return z.s.Sync()
}

var _ runtime.Logger = (*ZapLogger)(nil)
