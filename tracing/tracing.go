// SPDX-License-Identifier: Apache-2.0
// SPDX-FileCopyrightText: 2025-Present Defense Unicorns

// Package tracing provides a thin wrapper around OpenTelemetry tracing
package tracing

import (
	"context"
	"io"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Init configures OpenTelemetry with the stdout exporter
//
// If outputFile is an empty string spans are written to os.Stdout. Safe to
// call multiple times, the first successful initialisation wins.
func Init(serviceName, serviceVersion, outputFile string) error {
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return err
		}
		w = f
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}
	return installProvider(serviceName, serviceVersion, exporter)
}

// InitWithExporter configures OpenTelemetry using the supplied SpanExporter
//
// This allows callers to integrate with any exporter supported by the
// OpenTelemetry SDK (e.g. OTLP, Jaeger, Zipkin). Safe to call multiple times,
// the first successful initialisation wins.
func InitWithExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	return installProvider(serviceName, serviceVersion, exporter)
}

var (
	providerOnce sync.Once
	providerErr  error
)

func installProvider(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) error {
	if exporter == nil {
		return nil
	}

	providerOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("service.version", serviceVersion),
			),
		)
		if err != nil {
			providerErr = err
			return
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
			sdktrace.WithResource(res),
		)

		otel.SetTracerProvider(tp)
	})

	return providerErr
}

// Span wraps an OpenTelemetry span so callers do not need to import the
// upstream packages directly
type Span struct {
	span trace.Span
}

// WithAttributes attaches all provided attributes to the span
func (s *Span) WithAttributes(attrs map[string]string) *Span {
	if s == nil || len(attrs) == 0 {
		return s
	}
	otelAttrs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		otelAttrs = append(otelAttrs, attribute.String(k, v))
	}
	s.span.SetAttributes(otelAttrs...)
	return s
}

// SetStatus records an error status on the span, a nil error records OK
func (s *Span) SetStatus(err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
}

// SetStatusFromHTTPCode sets the span status based on an HTTP response code
func (s *Span) SetStatusFromHTTPCode(code int) {
	if s == nil {
		return
	}

	switch {
	case code >= 100 && code < 400:
		s.span.SetStatus(codes.Ok, "")
	case code >= 400 && code < 500:
		s.span.SetStatus(codes.Error, "client error")
	case code >= 500:
		s.span.SetStatus(codes.Error, "server error")
	default:
		s.span.SetStatus(codes.Unset, "")
	}
}

// StartSpan starts a new child span
//
// kind maps onto the matching trace.SpanKind, anything unrecognized becomes
// SpanKindInternal.
func StartSpan(ctx context.Context, name, kind string) (context.Context, *Span) {
	tracer := otel.Tracer("github.com/defenseunicorns/pipa")

	var spanKind trace.SpanKind
	switch kind {
	case "SERVER":
		spanKind = trace.SpanKindServer
	case "CLIENT":
		spanKind = trace.SpanKindClient
	case "PRODUCER":
		spanKind = trace.SpanKindProducer
	case "CONSUMER":
		spanKind = trace.SpanKindConsumer
	default:
		spanKind = trace.SpanKindInternal
	}

	ctx, span := tracer.Start(ctx, name, trace.WithSpanKind(spanKind))

	return ctx, &Span{span: span}
}

// EndSpan finalises the span and records status depending on the provided error
func EndSpan(sp *Span, err error) {
	if sp == nil {
		return
	}
	sp.SetStatus(err)
	sp.span.End()
}

// WithSpan attaches the span to the context
func WithSpan(ctx context.Context, sp *Span) context.Context {
	if sp == nil {
		return ctx
	}
	return trace.ContextWithSpan(ctx, sp.span)
}

// SpanFromContext retrieves the span from the supplied context when present
func SpanFromContext(ctx context.Context) (*Span, bool) {
	sp := trace.SpanFromContext(ctx)
	if sp == nil {
		return nil, false
	}
	return &Span{span: sp}, true
}
