package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/config"
	"github.com/Microgramix/Motoristas.ranking/server/internal/correction"
	"github.com/Microgramix/Motoristas.ranking/server/internal/metrics"
	"github.com/Microgramix/Motoristas.ranking/server/internal/period"
	"github.com/Microgramix/Motoristas.ranking/server/internal/ranking"
	"github.com/Microgramix/Motoristas.ranking/server/internal/source"
	"github.com/Microgramix/Motoristas.ranking/server/internal/telemetry"
)

// ErrDataUnavailable reports that team documents could not be fetched.
var ErrDataUnavailable = errors.New("data unavailable")

// Request is a leaderboard query as received from callers. Period defaults
// to daily and Date, for daily and weekly boards, to today.
type Request struct {
	Period string
	Date   string
}

// rules is the reloadable part of the configuration.
type rules struct {
	table        *correction.Table
	opts         ranking.Options
	loc          *time.Location
	goals        types.Goals
	highlightTop int
}

// Engine serves leaderboards built from a Source.
//
// All exported methods are safe for concurrent use.
type Engine struct {
	src     source.Source
	breaker *gobreaker.CircuitBreaker
	group   singleflight.Group
	rules   atomic.Pointer[rules]
	timeout time.Duration
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time // injectable for deterministic tests
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used to decide what "today" is.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New returns an Engine reading from src. m may be nil.
func New(src source.Source, cfg *config.Config, m *metrics.Metrics, opts ...Option) (*Engine, error) {
	e := &Engine{
		src:     src,
		timeout: cfg.Source.Timeout,
		metrics: m,
		tracer:  telemetry.Tracer(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.timeout <= 0 {
		e.timeout = config.DefaultSourceTimeout
	}
	e.breaker = gobreaker.NewCircuitBreaker(breakerSettings(src.Name(), cfg.Breaker, m))
	if err := e.Reload(cfg.Ranking); err != nil {
		return nil, err
	}
	return e, nil
}

func breakerSettings(name string, bc config.BreakerConfig, m *metrics.Metrics) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        "source-" + name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < bc.MinRequests || c.Requests == 0 {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= bc.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("engine: breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			m.SetBreakerState(breakerGauge(to))
		},
	}
}

func breakerGauge(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}

// Reload validates rc and makes it the configuration for all later requests.
// On error the previous configuration stays active.
func (e *Engine) Reload(rc config.RankingConfig) error {
	table, err := rc.CorrectionTable()
	if err != nil {
		return fmt.Errorf("engine: corrections: %w", err)
	}
	loc, err := rc.Location()
	if err != nil {
		return fmt.Errorf("engine: timezone: %w", err)
	}
	opts := rc.Options(table)
	r := &rules{
		table:        table,
		opts:         opts,
		loc:          loc,
		goals:        opts.Goals,
		highlightTop: opts.HighlightTop,
	}
	if r.goals == (types.Goals{}) {
		r.goals = types.DefaultGoals()
	}
	if r.highlightTop <= 0 {
		r.highlightTop = types.DefaultHighlightTop
	}
	e.rules.Store(r)
	e.metrics.SetCorrections(table.Len())
	slog.Info("engine: rules loaded", "corrections", table.Len(), "timezone", loc.String())
	return nil
}

// Today returns the current calendar day in the configured time zone.
func (e *Engine) Today() time.Time {
	return period.Day(e.now().In(e.rules.Load().loc))
}

// Goals returns the active goals and podium size.
func (e *Engine) Goals() (types.Goals, int) {
	r := e.rules.Load()
	return r.goals, r.highlightTop
}

// Corrections returns the names in the active correction table.
func (e *Engine) Corrections() []string {
	return e.rules.Load().table.Names()
}

// BreakerState reports the source breaker state: closed, half-open or open.
func (e *Engine) BreakerState() string {
	return e.breaker.State().String()
}

// SourceName identifies the configured source.
func (e *Engine) SourceName() string { return e.src.Name() }

// Fetch returns the current team documents. Concurrent callers share a
// single source fetch; the fetch itself is bounded by the source timeout and
// is not cancelled when one of the callers gives up.
func (e *Engine) Fetch(ctx context.Context) ([]types.TeamDocument, error) {
	ch := e.group.DoChan("fetch", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
		defer cancel()
		return e.fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]types.TeamDocument), nil
	}
}

func (e *Engine) fetch(ctx context.Context) ([]types.TeamDocument, error) {
	ctx, span := e.tracer.Start(ctx, "engine.fetch",
		trace.WithAttributes(attribute.String("source", e.src.Name())))
	defer span.End()

	start := e.now()
	v, err := e.breaker.Execute(func() (any, error) {
		return e.src.Fetch(ctx)
	})
	elapsed := e.now().Sub(start)

	if err != nil {
		result := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		e.metrics.ObserveFetch(e.src.Name(), result, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
		slog.Warn("engine: fetch failed", "source", e.src.Name(), "result", result, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	docs := v.([]types.TeamDocument)
	e.metrics.ObserveFetch(e.src.Name(), "ok", elapsed)
	span.SetAttributes(attribute.Int("teams", len(docs)))
	return docs, nil
}

// Query turns a Request into a ranking.Query, applying defaults. Errors
// wrap ranking.ErrInvalidQuery.
func (e *Engine) Query(req Request) (ranking.Query, error) {
	today := e.Today()
	p := types.PeriodDaily
	if strings.TrimSpace(req.Period) != "" {
		var err error
		if p, err = types.ParsePeriod(req.Period); err != nil {
			return ranking.Query{}, fmt.Errorf("%w: %v", ranking.ErrInvalidQuery, err)
		}
	}
	q := ranking.Query{Period: p, Today: today}
	if d := strings.TrimSpace(req.Date); d != "" {
		date, err := period.ParseDate(d)
		if err != nil {
			return ranking.Query{}, fmt.Errorf("%w: %v", ranking.ErrInvalidQuery, err)
		}
		q.Date = date
	} else if p != types.PeriodMonthly {
		q.Date = today
	}
	return q, nil
}

// Leaderboard fetches the documents and builds the board for req.
func (e *Engine) Leaderboard(ctx context.Context, req Request) (*types.Leaderboard, error) {
	q, err := e.Query(req)
	if err != nil {
		return nil, err
	}
	docs, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return e.Build(ctx, docs, q)
}

// Build aggregates docs for q with the active rules.
func (e *Engine) Build(ctx context.Context, docs []types.TeamDocument, q ranking.Query) (*types.Leaderboard, error) {
	_, span := e.tracer.Start(ctx, "engine.aggregate", trace.WithAttributes(
		attribute.String("period", string(q.Period)),
		attribute.String("date", period.Format(q.Date)),
	))
	defer span.End()

	lb, err := ranking.Build(docs, q, e.rules.Load().opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate")
		return nil, err
	}
	e.metrics.ObserveAggregation(string(q.Period), lb.Skipped)
	span.SetAttributes(attribute.Int("entries", len(lb.Entries)))
	if n := ranking.Skipped(lb.Skipped).Total(); n > 0 {
		slog.Debug("engine: skipped raw entries", "count", n, "reasons", lb.Skipped)
	}
	return lb, nil
}

// Dates returns every date present in the source, newest first.
func (e *Engine) Dates(ctx context.Context) ([]string, error) {
	docs, err := e.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.AvailableDates(docs), nil
}
