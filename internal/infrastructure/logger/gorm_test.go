package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), logs
}

func TestNewGormLogger(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)

	assert.Equal(t, gormlogger.Info, gl.level)
	assert.Equal(t, defaultSlowThreshold, gl.slowThreshold)
	assert.False(t, gl.logRecordNotFound)
}

func TestNewGormLogger_Options(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Warn,
		WithSlowThreshold(500*time.Millisecond),
		WithRecordNotFoundLogging(),
	)

	assert.Equal(t, 500*time.Millisecond, gl.slowThreshold)
	assert.True(t, gl.logRecordNotFound)
}

func TestGormLogger_LogMode(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), gormlogger.Info)

	clone := gl.LogMode(gormlogger.Warn).(*GormLogger)

	assert.Equal(t, gormlogger.Warn, clone.level)
	// The original is untouched.
	assert.Equal(t, gormlogger.Info, gl.level)
}

func TestGormLogger_Info(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	gl.Info(context.Background(), "running migration %s", "receipts")

	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "receipts")
}

func TestGormLogger_Info_SuppressedBelowLevel(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn)

	gl.Info(context.Background(), "ignored")

	assert.Zero(t, logs.Len())
}

func TestGormLogger_Trace_Error(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "UPDATE receipts SET status = $1", 0
	}, errors.New("deadlock detected"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "SQL Error", entry.Message)
	assert.Equal(t, zap.ErrorLevel, entry.Level)
}

func TestGormLogger_Trace_RecordNotFoundSuppressed(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM receipts WHERE id = $1", 0
	}, gormlogger.ErrRecordNotFound)

	assert.Zero(t, logs.Len())
}

func TestGormLogger_Trace_RecordNotFoundLoggedWhenEnabled(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Error, WithRecordNotFoundLogging())

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM receipts WHERE id = $1", 0
	}, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 1, logs.Len())
}

func TestGormLogger_Trace_SlowQuery(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))

	gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT * FROM cash_cuts", 42
	}, nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "Slow SQL", entry.Message)
	assert.Equal(t, zap.WarnLevel, entry.Level)
}

func TestGormLogger_Trace_SlowQueryDisabledByZeroThreshold(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(0))

	gl.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT * FROM cash_cuts", 42
	}, nil)

	assert.Zero(t, logs.Len())
}

func TestGormLogger_Trace_NormalQueryAtInfo(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM pricing_rules WHERE product_id = $1", 3
	}, nil)

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "SQL Query", logs.All()[0].Message)
}

func TestGormLogger_Trace_Silent(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Silent)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, errors.New("ignored"))

	assert.Zero(t, logs.Len())
}

func TestGormLogger_Trace_RequestIDFromContext(t *testing.T) {
	gl, logs := newObservedGormLogger(gormlogger.Info)

	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-42")
	gl.Trace(ctx, time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"unknown", gormlogger.Warn},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.input))
		})
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	var _ gormlogger.Interface = NewGormLogger(zap.NewNop(), gormlogger.Info)
}
