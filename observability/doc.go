// Package observability wires eventkit into OpenTelemetry.
//
// Exporters are opt-in; without InitMeter/InitTracer the global otel
// providers are no-ops and recording costs next to nothing.
//
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
// The engine records through Default():
//
//   - eventkit.events.dropped: events discarded by throttle and limit stages
//   - eventkit.dispatch.unhandled: fire-and-forget failures with no handler
//   - eventkit.dispatch.duration: time spent in dispatched work
//   - eventkit.dispatch.panics: panics recovered from dispatched work
package observability
