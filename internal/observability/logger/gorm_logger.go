package logger

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

// GormLoggerConfig configures the GORM zap logger.
type GormLoggerConfig struct {
	Level                gormlogger.LogLevel
	SlowThreshold        time.Duration
	IgnoreRecordNotFound bool
	// KnownTables are the tables queries are expected to touch. A statement on
	// any other table is logged at warn level.
	KnownTables []string
}

// DefaultGormLoggerConfig logs errors and slow statements and expects the six
// convention tables plus the migration bookkeeping table.
func DefaultGormLoggerConfig() GormLoggerConfig {
	return GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        200 * time.Millisecond,
		IgnoreRecordNotFound: true,
		KnownTables: []string{
			"core_organizations",
			"core_entities",
			"core_dynamic_data",
			"core_relationships",
			"universal_transactions",
			"universal_transaction_lines",
			"schema_migrations",
		},
	}
}

// GormLogger implements gormlogger.Interface on top of the context logger.
type GormLogger struct {
	level                gormlogger.LogLevel
	slowThreshold        time.Duration
	ignoreRecordNotFound bool
	known                map[string]struct{}
}

func NewGormLogger(cfg GormLoggerConfig) *GormLogger {
	known := make(map[string]struct{}, len(cfg.KnownTables))
	for _, table := range cfg.KnownTables {
		known[strings.ToLower(strings.TrimSpace(table))] = struct{}{}
	}
	return &GormLogger{
		level:                cfg.Level,
		slowThreshold:        cfg.SlowThreshold,
		ignoreRecordNotFound: cfg.IgnoreRecordNotFound,
		known:                known,
	}
}

func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Info, zapcore.InfoLevel, msg, data)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, data)
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	l.message(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, data)
}

func (l *GormLogger) message(ctx context.Context, min gormlogger.LogLevel, level zapcore.Level, msg string, data []interface{}) {
	if l.level < min {
		return
	}
	fields := []zap.Field{zap.String("component", "gorm")}
	if len(data) > 0 {
		fields = append(fields, zap.Any("data", data))
	}
	if ce := FromContext(ctx).Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// Trace logs failed and slow statements, every statement at Info level, and
// statements on tables outside KnownTables.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	tables := tablesFromSQL(sql)
	unknown := l.unknownTables(tables)

	level := zapcore.InvalidLevel
	switch {
	case err != nil && l.level >= gormlogger.Error && !(l.ignoreRecordNotFound && errors.Is(err, gormlogger.ErrRecordNotFound)):
		level = zapcore.ErrorLevel
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		level = zapcore.WarnLevel
	case len(unknown) > 0 && l.level >= gormlogger.Warn:
		level = zapcore.WarnLevel
	case l.level >= gormlogger.Info:
		level = zapcore.DebugLevel
	}
	if level == zapcore.InvalidLevel {
		return
	}

	fields := []zap.Field{
		zap.String("component", "gorm"),
		zap.String("sql", strings.TrimSpace(sql)),
		zap.String("operation", operationFromSQL(sql)),
		zap.Strings("tables", tables),
		zap.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows_affected", rows))
	}
	if len(unknown) > 0 {
		fields = append(fields, zap.Strings("unexpected_tables", unknown))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}

	if ce := FromContext(ctx).Check(level, "gorm.query"); ce != nil {
		ce.Write(fields...)
	}
}

// ParamsFilter drops bound values so payload contents never reach the logs.
func (l *GormLogger) ParamsFilter(_ context.Context, sql string, _ ...interface{}) (string, []interface{}) {
	return sql, nil
}

func (l *GormLogger) unknownTables(tables []string) []string {
	if len(l.known) == 0 {
		return nil
	}
	var out []string
	for _, table := range tables {
		if _, ok := l.known[table]; !ok {
			out = append(out, table)
		}
	}
	return out
}

func operationFromSQL(sql string) string {
	for _, token := range strings.Fields(strings.ToUpper(sql)) {
		token = strings.Trim(token, "();")
		switch token {
		case "SELECT", "INSERT", "UPDATE", "DELETE", "MERGE":
			return token
		}
	}
	return "UNKNOWN"
}

var tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|join|into|update)\s+["` + "`" + `]?([a-z_][a-z0-9_]*)["` + "`" + `]?(?:\.["` + "`" + `]?([a-z_][a-z0-9_]*)["` + "`" + `]?)?`)

// tablesFromSQL returns the distinct lower-cased table names referenced after
// FROM, JOIN, INTO and UPDATE, in order of appearance. Schema qualifiers are
// dropped.
func tablesFromSQL(sql string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		name := m[1]
		if m[2] != "" {
			name = m[2]
		}
		name = strings.ToLower(name)
		if name == "select" || name == "lateral" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

var _ gormlogger.Interface = (*GormLogger)(nil)
