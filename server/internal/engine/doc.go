// Package engine ties a source to the ranking pipeline.
//
// Engine fetches team documents through a circuit breaker, collapses
// concurrent fetches into one, and aggregates them with the correction
// table currently in force. Reload swaps the table and options atomically,
// so every request sees exactly one table.
//
// View keeps the "current selection" board in a store.Board up to date:
// Select starts an asynchronous recompute, Run refreshes it periodically.
//
// A failed or short-circuited fetch surfaces as ErrDataUnavailable, never as
// an empty leaderboard.
package engine
