package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
	"github.com/Microgramix/Motoristas.ranking/server/internal/metrics"
	"github.com/Microgramix/Motoristas.ranking/server/internal/ranking"
	"github.com/Microgramix/Motoristas.ranking/server/internal/store"
)

func newView(t *testing.T, src *fakeSource) *View {
	t.Helper()
	e := newEngine(t, src, testConfig())
	return NewView(e, store.NewBoard(store.Selection{Period: types.PeriodDaily}), metrics.New())
}

func TestView_SelectPublishes(t *testing.T) {
	v := newView(t, &fakeSource{docs: teams()})
	sel := store.Selection{Period: types.PeriodWeekly, Date: "2024-01-02"}

	gen, err := v.Select(context.Background(), sel)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	v.Wait()

	s := v.Board().Current()
	if s.Generation != gen || s.Selection != sel || s.Pending {
		t.Fatalf("snapshot = %+v", s)
	}
	if s.Board == nil || s.Board.Window.Start != "2024-01-01" {
		t.Errorf("board = %+v", s.Board)
	}
}

func TestView_LatestSelectionWins(t *testing.T) {
	src := &fakeSource{docs: teams(), gate: make(chan struct{})}
	v := newView(t, src)

	ctx := context.Background()
	if _, err := v.Select(ctx, store.Selection{Period: types.PeriodWeekly, Date: "2024-01-02"}); err != nil {
		t.Fatalf("Select weekly: %v", err)
	}
	latest := store.Selection{Period: types.PeriodMonthly}
	gen, err := v.Select(ctx, latest)
	if err != nil {
		t.Fatalf("Select monthly: %v", err)
	}
	close(src.gate)
	v.Wait()

	s := v.Board().Current()
	if s.Generation != gen || s.Selection != latest || s.Board.Period != types.PeriodMonthly {
		t.Errorf("snapshot = %+v", s)
	}
	if v.Board().Discarded() != 1 {
		t.Errorf("discarded = %d, want 1", v.Board().Discarded())
	}
}

func TestView_SelectRejectsInvalid(t *testing.T) {
	v := newView(t, &fakeSource{docs: teams()})
	_, err := v.Select(context.Background(), store.Selection{Period: "hourly"})
	if !errors.Is(err, ranking.ErrInvalidQuery) {
		t.Fatalf("err = %v, want ErrInvalidQuery", err)
	}
	if v.Board().Selection().Period != types.PeriodDaily {
		t.Error("invalid selection replaced the current one")
	}
}

func TestView_FailurePublishesError(t *testing.T) {
	v := newView(t, &fakeSource{err: errors.New("down")})
	v.Refresh(context.Background())

	s := v.Board().Current()
	if !errors.Is(s.Err, ErrDataUnavailable) || s.Board != nil {
		t.Errorf("snapshot = %+v", s)
	}
}

func TestView_RunRefreshesUntilCancelled(t *testing.T) {
	src := &fakeSource{docs: teams()}
	v := newView(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		v.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for src.callCount() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d refreshes observed", src.callCount())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if s := v.Board().Current(); s.Board == nil || s.Board.Period != types.PeriodDaily {
		t.Errorf("snapshot = %+v", s)
	}
}
