// Package types defines the Go types shared by the ranking service, the rankctl
// CLI and any external consumer of the JSON API. These are the canonical
// in-memory representations of delivery records and leaderboards; field names
// in JSON follow the camelCase contract the presentation layer already reads.
package types
