package opentelemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cakephp/cakephp-sub067/orm"
)

const instrumentationName = "github.com/cakephp/cakephp-sub067/orm/middlewares/opentelemetry"

type MiddlewareBuilder struct {
	Tracer trace.Tracer
}

func (m MiddlewareBuilder) Build() orm.Middleware {
	if m.Tracer == nil {
		m.Tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}
	return func(next orm.Handler) orm.Handler {
		return func(ctx context.Context, qc *orm.QueryContext) *orm.QueryResult {
			table := "unknown"
			if qc.Model != nil {
				table = qc.Model.TableName
			}
			ctx, span := m.Tracer.Start(ctx, qc.Type+" "+table, trace.WithSpanKind(trace.SpanKindClient))
			defer span.End()

			span.SetAttributes(attribute.String("db.operation", qc.Type))
			span.SetAttributes(attribute.String("db.sql.table", table))
			q, err := qc.Builder.Build()
			if err == nil {
				span.SetAttributes(attribute.String("db.statement", q.SQL))
			}

			res := next(ctx, qc)
			if res.Err != nil {
				span.RecordError(res.Err)
				span.SetStatus(codes.Error, res.Err.Error())
			}
			return res
		}
	}
}
