// Package store holds the "current selection" leaderboard shared by API
// callers and the periodic refresher.
//
// Recomputes run asynchronously. Each one is tagged with a generation from
// Begin; Commit applies a result only when its generation is still the most
// recent one issued, so a slow recompute for an old selection can never
// overwrite the board of a newer one.
package store
