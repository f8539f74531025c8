package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const slowQueryThreshold = 200 * time.Millisecond

// RegisterDBTracing instruments a GORM connection with OpenTelemetry spans.
// Query variables are never recorded; receipts carry student identifiers.
// No-op when telemetry is disabled.
func RegisterDBTracing(db *gorm.DB, cfg Config, log *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}

	plugin := otelgorm.NewPlugin(
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	)
	if err := db.Use(plugin); err != nil {
		return fmt.Errorf("failed to register otelgorm plugin: %w", err)
	}

	registrations := []struct {
		name string
		err  error
	}{
		{"before_query", db.Callback().Query().Before("gorm:query").Register("telemetry:before_query", beforeCallback)},
		{"before_create", db.Callback().Create().Before("gorm:create").Register("telemetry:before_create", beforeCallback)},
		{"before_update", db.Callback().Update().Before("gorm:update").Register("telemetry:before_update", beforeCallback)},
		{"before_delete", db.Callback().Delete().Before("gorm:delete").Register("telemetry:before_delete", beforeCallback)},
		{"after_query", db.Callback().Query().After("gorm:query").Register("telemetry:after_query", afterCallback("query"))},
		{"after_create", db.Callback().Create().After("gorm:create").Register("telemetry:after_create", afterCallback("create"))},
		{"after_update", db.Callback().Update().After("gorm:update").Register("telemetry:after_update", afterCallback("update"))},
		{"after_delete", db.Callback().Delete().After("gorm:delete").Register("telemetry:after_delete", afterCallback("delete"))},
	}
	for _, r := range registrations {
		if r.err != nil {
			return fmt.Errorf("failed to register %s callback: %w", r.name, r.err)
		}
	}

	log.Info("Database tracing enabled",
		zap.Duration("slow_query_threshold", slowQueryThreshold),
	)
	return nil
}

// beforeCallback stamps the statement context so the after callback can
// detect slow queries.
func beforeCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if trace.SpanFromContext(ctx).IsRecording() {
		db.Statement.Context = context.WithValue(ctx, queryStartKey{}, time.Now())
	}
}

// afterCallback enriches the span otelgorm opened with row counts and
// slow-query markers, and records errors other than missing rows.
func afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}

		span.SetAttributes(
			attribute.Int64("db.rows_affected", db.Statement.RowsAffected),
			attribute.String("db.operation", operation),
		)
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}

		if started, ok := ctx.Value(queryStartKey{}).(time.Time); ok {
			if elapsed := time.Since(started); elapsed > slowQueryThreshold {
				span.SetAttributes(
					attribute.Bool("db.slow_query", true),
					attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
				)
			}
		}

		if err := db.Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
}

type queryStartKey struct{}
