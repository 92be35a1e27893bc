// Package metrics owns the Prometheus collectors of the ranking server.
//
// Collectors live on a private registry so tests can build as many Metrics as
// they like. Handler serves the registry in the exposition format and
// Counters reads it back for the health endpoint. A nil *Metrics is valid
// and records nothing.
package metrics
