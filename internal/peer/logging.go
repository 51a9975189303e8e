package peer

import (
	"github.com/pion/logging"
	"go.uber.org/zap"
)

// LoggerFactory routes pion's internal logs into zap. Trace goes to debug.
type LoggerFactory struct {
	Log *zap.Logger
}

var _ logging.LoggerFactory = LoggerFactory{}

func (f LoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	log := f.Log
	if log == nil {
		log = zap.L()
	}
	return &leveledLogger{s: log.With(zap.String("section", "pion"), zap.String("scope", scope)).Sugar()}
}

type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l *leveledLogger) Trace(msg string)                          { l.s.Debug(msg) }
func (l *leveledLogger) Tracef(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *leveledLogger) Debug(msg string)                          { l.s.Debug(msg) }
func (l *leveledLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l *leveledLogger) Info(msg string)                           { l.s.Info(msg) }
func (l *leveledLogger) Infof(format string, args ...interface{})  { l.s.Infof(format, args...) }
func (l *leveledLogger) Warn(msg string)                           { l.s.Warn(msg) }
func (l *leveledLogger) Warnf(format string, args ...interface{})  { l.s.Warnf(format, args...) }
func (l *leveledLogger) Error(msg string)                          { l.s.Error(msg) }
func (l *leveledLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }
