package logger

import (
	"go.uber.org/zap"
)

// LoggerAdapter routes lifecycle events to the category logs when they are
// enabled, and to the console logger at debug level otherwise. A nil
// adapter drops events.
type LoggerAdapter struct {
	multiLogger  *MultiLogger
	singleLogger *zap.Logger
}

// NewLoggerAdapter creates an adapter. multiLogger may be nil.
func NewLoggerAdapter(multiLogger *MultiLogger, singleLogger *zap.Logger) *LoggerAdapter {
	if singleLogger == nil {
		singleLogger = zap.NewNop()
	}
	return &LoggerAdapter{multiLogger: multiLogger, singleLogger: singleLogger}
}

// LogSessionEvent records a login, refresh or cache event
func (la *LoggerAdapter) LogSessionEvent(event string, fields ...zap.Field) {
	if la == nil {
		return
	}
	if la.multiLogger != nil {
		la.multiLogger.LogSessionEvent(event, fields...)
		return
	}
	la.singleLogger.Debug(event, append(fields, zap.String("category", string(CategorySession)))...)
}

// LogDownloadEvent records a per-video lifecycle event
func (la *LoggerAdapter) LogDownloadEvent(event string, fields ...zap.Field) {
	if la == nil {
		return
	}
	if la.multiLogger != nil {
		la.multiLogger.LogDownloadEvent(event, fields...)
		return
	}
	la.singleLogger.Debug(event, append(fields, zap.String("category", string(CategoryDownload)))...)
}

// LogAppError records an application error
func (la *LoggerAdapter) LogAppError(msg string, fields ...zap.Field) {
	if la == nil {
		return
	}
	if la.multiLogger != nil {
		la.multiLogger.LogAppError(msg, fields...)
		return
	}
	la.singleLogger.Debug(msg, append(fields, zap.String("category", string(CategoryError)))...)
}

// Sync flushes the underlying loggers
func (la *LoggerAdapter) Sync() error {
	if la == nil {
		return nil
	}
	if la.multiLogger != nil {
		return la.multiLogger.Sync()
	}
	return la.singleLogger.Sync()
}

// Close closes the category log files, if any
func (la *LoggerAdapter) Close() error {
	if la == nil || la.multiLogger == nil {
		return nil
	}
	return la.multiLogger.Close()
}
