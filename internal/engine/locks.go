package engine

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/account-ledger-engine/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// accountLocks serializes operations per account within this process.
// Locks are always acquired in ascending ID order so that two transfers
// touching the same pair of accounts can never deadlock each other.
type accountLocks struct {
	mu   sync.Mutex
	sems map[uuid.UUID]*semaphore.Weighted
}

func newAccountLocks() *accountLocks {
	return &accountLocks{
		sems: make(map[uuid.UUID]*semaphore.Weighted),
	}
}

func (l *accountLocks) sem(id uuid.UUID) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sems[id]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.sems[id] = s
	}
	return s
}

// Acquire takes the locks for the given accounts, waiting up to timeout for
// each. It returns a release function that must be called once the operation
// finishes. If any lock cannot be obtained in time it releases everything
// already held and returns shared.ErrBusy.
func (l *accountLocks) Acquire(ctx context.Context, timeout time.Duration, ids ...uuid.UUID) (func(), error) {
	sorted := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i][:], sorted[j][:]) < 0
	})

	var held []*semaphore.Weighted
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}

	for _, id := range sorted {
		s := l.sem(id)

		acquireCtx, cancel := context.WithTimeout(ctx, timeout)
		err := s.Acquire(acquireCtx, 1)
		cancel()

		if err != nil {
			release()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, shared.ErrBusy
		}
		held = append(held, s)
	}

	return release, nil
}
