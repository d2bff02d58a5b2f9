package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/eventkit/logger"
)

// InstrumentationName is the meter and tracer name used by eventkit.
const InstrumentationName = "github.com/kbukum/eventkit"

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
// The caller owns shutdown of the returned provider.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Get("eventkit.observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Instruments holds the metric instruments recorded by the engine.
type Instruments struct {
	eventsDropped    metric.Int64Counter
	unhandled        metric.Int64Counter
	dispatchDuration metric.Float64Histogram
	panics           metric.Int64Counter
}

// NewInstruments creates the engine instruments on meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	eventsDropped, err := meter.Int64Counter("eventkit.events.dropped",
		metric.WithDescription("Events discarded by a pipeline stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating eventkit.events.dropped counter: %w", err)
	}

	unhandled, err := meter.Int64Counter("eventkit.dispatch.unhandled",
		metric.WithDescription("Errors from fire-and-forget work with no handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating eventkit.dispatch.unhandled counter: %w", err)
	}

	dispatchDuration, err := meter.Float64Histogram("eventkit.dispatch.duration",
		metric.WithDescription("Duration of work executed by a dispatcher in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating eventkit.dispatch.duration histogram: %w", err)
	}

	panics, err := meter.Int64Counter("eventkit.dispatch.panics",
		metric.WithDescription("Panics recovered from dispatched work"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating eventkit.dispatch.panics counter: %w", err)
	}

	return &Instruments{
		eventsDropped:    eventsDropped,
		unhandled:        unhandled,
		dispatchDuration: dispatchDuration,
		panics:           panics,
	}, nil
}

// RecordDropped counts an event discarded by operator for reason.
func (i *Instruments) RecordDropped(ctx context.Context, operator, reason string) {
	i.eventsDropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOperator, operator),
		attribute.String(AttrReason, reason),
	))
}

// RecordUnhandled counts an error routed to the unhandled-error point.
func (i *Instruments) RecordUnhandled(ctx context.Context, dispatcher string) {
	i.unhandled.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrDispatcher, dispatcher),
	))
}

// RecordDispatch records one unit of dispatched work.
func (i *Instruments) RecordDispatch(ctx context.Context, dispatcher, status string, duration time.Duration) {
	i.dispatchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrDispatcher, dispatcher),
		attribute.String(AttrStatus, status),
	))
}

// RecordPanic counts a panic recovered from dispatched work.
func (i *Instruments) RecordPanic(ctx context.Context, dispatcher string) {
	i.panics.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrDispatcher, dispatcher),
	))
}

var (
	defaultOnce        sync.Once
	defaultInstruments *Instruments
)

// Default returns the process-wide instruments created on the global meter
// provider. The global provider delegates, so instruments created before
// InitMeter still export once a provider is installed.
func Default() *Instruments {
	defaultOnce.Do(func() {
		inst, err := NewInstruments(Meter(InstrumentationName))
		if err != nil {
			logger.Get("eventkit.observability").Warn("falling back to noop instruments",
				logger.Fields(logger.FieldError, err.Error()))
			inst = noopInstruments()
		}
		defaultInstruments = inst
	})
	return defaultInstruments
}

func noopInstruments() *Instruments {
	inst, _ := NewInstruments(noop.NewMeterProvider().Meter(InstrumentationName))
	return inst
}
