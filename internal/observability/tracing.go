// File: internal/observability/tracing.go
package observability

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/xkilldash9x/scalpel-e2e/internal/config"
)

// TracerProvider owns the SDK provider and the file its spans are exported to.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	out      io.Closer
}

// NewTracerProvider installs a global tracer provider exporting spans as JSON to
// cfg.File. When tracing is disabled the global provider is a no-op and the
// returned provider's Shutdown does nothing.
func NewTracerProvider(cfg config.TracingConfig, version string) (*TracerProvider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &TracerProvider{}, nil
	}

	f, err := os.Create(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace file %s: %w", cfg.File, err)
	}
	tp, err := newTracerProvider(f, cfg.ServiceName, version)
	if err != nil {
		f.Close()
		return nil, err
	}
	tp.out = f
	return tp, nil
}

func newTracerProvider(w io.Writer, serviceName, version string) (*TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)

	return &TracerProvider{provider: provider}, nil
}

// Tracer returns a named tracer from the installed provider.
func (tp *TracerProvider) Tracer(name string) trace.Tracer {
	if tp.provider == nil {
		return otel.Tracer(name)
	}
	return tp.provider.Tracer(name)
}

// Shutdown flushes pending spans and closes the trace file.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	err := tp.provider.Shutdown(ctx)
	if tp.out != nil {
		if cerr := tp.out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close trace file: %w", cerr)
		}
	}
	return err
}
