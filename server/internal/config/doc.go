// Package config loads the ranking server configuration from a YAML file,
// applies RANKING_* environment overrides and validates the result.
//
// Sections:
//   - server: HTTP port, timeouts, refresh interval of the current selection
//   - source: where team documents come from: file | http | sqlite
//   - ranking: timezone, goals, podium size, level scale and score corrections
//   - breaker: circuit breaker around source fetches
//   - telemetry: optional OTLP trace export
//   - log: slog level
//
// Secrets never live in the file: *_env fields name the environment variable
// that holds the value. Watch reloads the file on change.
package config
