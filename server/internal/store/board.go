package store

import (
	"sync"
	"time"

	"github.com/Microgramix/Motoristas.ranking/pkg/types"
)

// Selection is the (period, date) pair the current board is built for.
// Date is YYYY-MM-DD and may be empty for monthly boards.
type Selection struct {
	Period types.Period `json:"period"`
	Date   string       `json:"date,omitempty"`
}

// Snapshot is a consistent view of the board. Selection is what Board was
// built for; Requested is the latest selection asked for, which differs
// while a recompute is pending.
type Snapshot struct {
	Selection  Selection
	Requested  Selection
	Generation uint64
	Board      *types.Leaderboard
	// Err is set when the last committed recompute failed; Board is nil then.
	Err       error
	UpdatedAt time.Time
	// Pending reports that a newer recompute has been issued but not yet
	// committed.
	Pending bool
}

// Board is a thread-safe latest-wins holder for the current selection.
type Board struct {
	mu        sync.RWMutex
	selection Selection
	issued    uint64
	current   Snapshot
	discarded uint64
	now       func() time.Time // injectable for deterministic tests
}

// NewBoard returns an empty Board for the initial selection.
func NewBoard(initial Selection) *Board {
	return &Board{
		selection: initial,
		current:   Snapshot{Selection: initial},
		now:       time.Now,
	}
}

// Begin records sel as the current selection and returns the generation the
// matching recompute must commit with.
func (b *Board) Begin(sel Selection) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued++
	b.selection = sel
	return b.issued
}

// Refresh issues a new generation for the current selection.
func (b *Board) Refresh() (Selection, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.issued++
	return b.selection, b.issued
}

// Commit stores the outcome of the recompute tagged gen. It returns false,
// and drops the outcome, when a newer generation has been issued since.
func (b *Board) Commit(gen uint64, board *types.Leaderboard, err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.issued {
		b.discarded++
		return false
	}
	b.current = Snapshot{
		Selection:  b.selection,
		Generation: gen,
		Err:        err,
		UpdatedAt:  b.now(),
	}
	if err == nil {
		b.current.Board = board
	}
	return true
}

// Current returns the last committed snapshot.
func (b *Board) Current() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := b.current
	s.Requested = b.selection
	s.Pending = b.issued != s.Generation
	return s
}

// Selection returns the most recently requested selection.
func (b *Board) Selection() Selection {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.selection
}

// Discarded returns how many superseded outcomes Commit has dropped.
func (b *Board) Discarded() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.discarded
}
