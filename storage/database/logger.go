package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lanes-app/lanes/core"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormLogger writes gorm logs to the app logger.
type gormLogger struct {
	logger core.Logger
	level  gormlogger.LogLevel
}

func newGormLogger(logger core.Logger, debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return &gormLogger{logger: logger, level: level}
}

func (l *gormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	newLogger := *l
	newLogger.level = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, args...))
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	// not found and duplicates are expected and mapped by the repositories
	case err != nil && l.level >= gormlogger.Error &&
		!errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey):
		sql, rows := fc()
		l.logger.Error(fmt.Sprintf("query failed [%s] rows:%d %s", elapsed, rows, sql), err)
	case elapsed > slowQueryThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger.Warn(fmt.Sprintf("slow query [%s] rows:%d %s", elapsed, rows, sql))
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger.Debug(fmt.Sprintf("[%s] rows:%d %s", elapsed, rows, sql))
	}
}
