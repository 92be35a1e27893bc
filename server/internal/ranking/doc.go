// Package ranking turns raw team documents into a ranked leaderboard.
//
// records.go validates team documents into DeliveryRecords, counting every
// skipped entry by reason (bad_date, bad_count, negative_count, empty_driver)
// instead of failing the batch.
//
// aggregate.go provides the pure Aggregate(records, Query, Options) function:
// it resolves the period window, folds records into per-driver accumulators,
// backfills the full roster for daily boards, and assembles the Leaderboard.
// The function keeps no state between calls, so identical input always yields
// identical output.
//
// trend.go builds zero-filled series aligned to the observed dates; rank.go
// orders entries by corrected score (descending) then name (ascending);
// level.go derives the level badge and goal progress.
package ranking
