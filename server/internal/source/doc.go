// Package source fetches raw team documents from the external store.
//
// Every fetch returns the complete set of documents; nothing is cached here.
// Implementations: file (JSON or YAML on disk), http (JSON over HTTP with
// apikey, bearer, basic or mTLS credentials) and sqlite (a deliveries table
// read through modernc.org/sqlite). New(config.SourceConfig) picks one.
//
// The wire shape shared by file and http is
//
//	{"<teamId>": {"YYYY-MM-DD": {"<driver>": <count>}}}
//
// Counts are decoded without interpretation; validation happens in the
// ranking package.
package source
