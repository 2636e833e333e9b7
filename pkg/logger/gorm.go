package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// maxSQLLength bounds the SQL text written per log entry.
const maxSQLLength = 1000

var gormLevels = map[string]gormlogger.LogLevel{
	"silent":  gormlogger.Silent,
	"error":   gormlogger.Error,
	"warn":    gormlogger.Warn,
	"warning": gormlogger.Warn,
	"info":    gormlogger.Info,
	"debug":   gormlogger.Info,
}

// GormLogger writes GORM statements to zap with the request fields from ctx.
// Statements run at debug, slow statements at warn and failures at error.
type GormLogger struct {
	log   *zap.Logger
	slow  time.Duration
	level gormlogger.LogLevel
}

// NewGormLogger maps the application log level onto GORM's and sets the slow statement
// threshold. Unknown levels fall back to warn. A zero threshold disables slow reporting.
func NewGormLogger(l *zap.Logger, slowQuerySeconds float64, logLevel string) *GormLogger {
	level, ok := gormLevels[strings.ToLower(logLevel)]
	if !ok {
		level = gormlogger.Warn
	}
	return &GormLogger{
		log:   l.With(zap.String("component", "gorm")),
		slow:  time.Duration(slowQuerySeconds * float64(time.Second)),
		level: level,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, threshold gormlogger.LogLevel, lvl zapcore.Level, msg string, data []any) {
	if l.level < threshold {
		return
	}
	WithContext(ctx, l.log).Log(lvl, fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement. gorm.ErrRecordNotFound is a normal lookup miss
// and is logged like a successful statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := l.slow > 0 && elapsed > l.slow

	var (
		lvl zapcore.Level
		msg string
	)
	switch {
	case failed:
		lvl, msg = zapcore.ErrorLevel, "sql statement failed"
	case slow && l.level >= gormlogger.Warn:
		lvl, msg = zapcore.WarnLevel, "slow sql statement"
	case l.level >= gormlogger.Info:
		lvl, msg = zapcore.DebugLevel, "sql statement"
	default:
		return
	}

	sql, rows := fc()
	fields := append(statementFields(sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	if failed {
		fields = append(fields, zap.Error(err))
	} else if slow {
		fields = append(fields, zap.Duration("threshold", l.slow))
	}

	WithContext(ctx, l.log).Log(lvl, msg, fields...)
}

// statementFields returns the statement verb and its text, truncated to maxSQLLength.
func statementFields(sql string) []zap.Field {
	verb, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	fields := []zap.Field{zap.String("verb", strings.ToUpper(verb))}
	if len(sql) > maxSQLLength {
		return append(fields, zap.String("sql", sql[:maxSQLLength]+"..."), zap.Bool("sql_truncated", true))
	}
	return append(fields, zap.String("sql", sql))
}
