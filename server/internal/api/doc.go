// Package api implements the HTTP JSON API of the ranking server.
//
// New(engine, view, metrics) returns an http.Handler that serves:
//
//	GET /api/v1/ranking?period=&date=&trend= : leaderboard; date defaults to today
//	GET /api/v1/drivers/{name}?period=&date= : one entry; 404 if not ranked
//	GET /api/v1/dates                        : every date with data, newest first
//	GET /api/v1/goals                        : period goals and podium size
//	GET /api/v1/selection                    : current selection and its state
//	PUT /api/v1/selection                    : change it; recomputed asynchronously
//	GET /api/v1/leaderboard                  : board of the current selection
//	GET /api/v1/health                       : breaker state and counters
//	GET /metrics                             : Prometheus exposition
//
// Invalid queries answer 400, unreachable data 503 {"error":"data unavailable"},
// wrong methods 405. Every response carries an X-Request-ID.
package api
