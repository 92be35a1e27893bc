// Package telemetry sets up OpenTelemetry tracing. Export is opt-in: with no
// OTLP endpoint configured the global no-op provider stays in place.
package telemetry
