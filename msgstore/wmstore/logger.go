package wmstore

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/rise-and-shine/statebus/observability/logger"
)

var _ watermill.LoggerAdapter = (*loggerAdapter)(nil)

// loggerAdapter routes watermill logs through the statebus logger.
type loggerAdapter struct {
	base logger.Logger
}

// NewLoggerAdapter adapts l for watermill publishers and subscribers.
func NewLoggerAdapter(l logger.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{base: l}
}

func (l *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.with(fields).With("error", err).Error(msg)
}

func (l *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.with(fields).Info(msg)
}

func (l *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.with(fields).Debug(msg)
}

func (l *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.with(fields).Debug(msg)
}

func (l *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{base: l.with(fields)}
}

func (l *loggerAdapter) with(fields watermill.LogFields) logger.Logger {
	log := l.base
	for k, v := range fields {
		log = log.With(k, v)
	}
	return log
}
