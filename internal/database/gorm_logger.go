package database

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// GormLogger routes gorm's logging through zap.
type GormLogger struct {
	Config logger.Config
	log    *zap.SugaredLogger
}

func NewGormLogger(config logger.Config, zapLogger *zap.Logger) *GormLogger {
	return &GormLogger{
		Config: config,
		log:    zapLogger.WithOptions(zap.AddCallerSkip(3)).Sugar().Named("gorm"),
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.Config.LogLevel = level
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel < logger.Info {
		return
	}
	l.log.Infof(msg, data...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel < logger.Warn {
		return
	}
	l.log.Warnf(msg, data...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel < logger.Error {
		return
	}
	l.log.Errorf(msg, data...)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error &&
		(!errors.Is(err, logger.ErrRecordNotFound) || !l.Config.IgnoreRecordNotFoundError):
		sql, rows := fc()
		l.log.Errorw("sql query failed", "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)
	case l.Config.SlowThreshold != 0 && elapsed > l.Config.SlowThreshold && l.Config.LogLevel >= logger.Warn:
		sql, rows := fc()
		l.log.Warnw("slow sql query", "sql", sql, "rows", rows, "elapsed", elapsed)
	case l.Config.LogLevel == logger.Info:
		sql, rows := fc()
		l.log.Debugw("sql query", "sql", sql, "rows", rows, "elapsed", elapsed)
	}
}
