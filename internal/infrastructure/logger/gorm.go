package logger

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes GORM's logging through zap. Request and product ids
// found in the query context are attached to every SQL line.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a GORM logger. A zero slowThreshold disables slow-query warnings.
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: slowThreshold,
	}
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Sugar().Infof(msg, data...)
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Sugar().Warnf(msg, data...)
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Sugar().Errorf(msg, data...)
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	notFound := errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := l.slowThreshold > 0 && elapsed > l.slowThreshold

	var log func(string, ...zap.Field)
	var msg string
	switch {
	case err != nil && !notFound && l.level >= gormlogger.Error:
		log, msg = l.logger.Error, "SQL error"
	case slow && l.level >= gormlogger.Warn:
		log, msg = l.logger.Warn, "Slow SQL"
	case l.level >= gormlogger.Info:
		log, msg = l.logger.Debug, "SQL"
	default:
		return
	}

	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if gid := GetProductGID(ctx); gid != "" {
		fields = append(fields, zap.String("product_gid", gid))
	}
	if err != nil && !notFound {
		fields = append(fields, zap.Error(err))
	}
	if slow {
		fields = append(fields, zap.Duration("slow_threshold", l.slowThreshold))
	}
	log(msg, fields...)
}

// MapGormLogLevel maps a config level name to a GORM log level
func MapGormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
