package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Microgramix/Motoristas.ranking/server/internal/metrics"
	"github.com/Microgramix/Motoristas.ranking/server/internal/store"
)

// recomputeTimeout bounds one background recompute of the current selection.
const recomputeTimeout = time.Minute

// View keeps the current-selection board of a store.Board up to date.
type View struct {
	eng     *Engine
	board   *store.Board
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

// NewView returns a View publishing into board. m may be nil.
func NewView(eng *Engine, board *store.Board, m *metrics.Metrics) *View {
	return &View{eng: eng, board: board, metrics: m}
}

// Board returns the underlying board.
func (v *View) Board() *store.Board { return v.board }

// Select validates sel, makes it the current selection and recomputes the
// board in the background. The returned generation identifies the
// recompute; an older one still running is discarded when it finishes.
func (v *View) Select(ctx context.Context, sel store.Selection) (uint64, error) {
	if _, err := v.eng.Query(Request{Period: string(sel.Period), Date: sel.Date}); err != nil {
		return 0, err
	}
	gen := v.board.Begin(sel)
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.recompute(context.WithoutCancel(ctx), sel, gen)
	}()
	return gen, nil
}

// Refresh recomputes the current selection synchronously.
func (v *View) Refresh(ctx context.Context) {
	sel, gen := v.board.Refresh()
	v.recompute(ctx, sel, gen)
}

// Run refreshes the board immediately and then every interval until ctx is
// cancelled. A non-positive interval refreshes once.
func (v *View) Run(ctx context.Context, interval time.Duration) {
	v.Refresh(ctx)
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			v.Refresh(ctx)
		}
	}
}

// Wait blocks until every background recompute started by Select returns.
func (v *View) Wait() { v.wg.Wait() }

func (v *View) recompute(ctx context.Context, sel store.Selection, gen uint64) {
	ctx, cancel := context.WithTimeout(ctx, recomputeTimeout)
	defer cancel()

	lb, err := v.eng.Leaderboard(ctx, Request{Period: string(sel.Period), Date: sel.Date})
	if !v.board.Commit(gen, lb, err) {
		v.metrics.BoardSuperseded()
		slog.Debug("engine: recompute superseded", "generation", gen, "period", sel.Period, "date", sel.Date)
		return
	}
	if err != nil {
		slog.Warn("engine: recompute failed", "generation", gen, "err", err)
		return
	}
	v.metrics.BoardRefreshed(v.eng.now())
}
