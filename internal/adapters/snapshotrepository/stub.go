package snapshotrepository

import (
	"context"
	"fmt"
	"sync"

	"github.com/Amund211/blitzstats/internal/domain"
)

type stubKey struct {
	region    domain.Region
	accountID int
}

// StubSnapshotRepository keeps snapshots in memory. Used in development and tests.
type StubSnapshotRepository struct {
	mu        sync.Mutex
	snapshots map[stubKey]*domain.PlayerSnapshot
}

func NewStubSnapshotRepository() *StubSnapshotRepository {
	return &StubSnapshotRepository{
		snapshots: make(map[stubKey]*domain.PlayerSnapshot),
	}
}

func (s *StubSnapshotRepository) StoreLastSnapshot(ctx context.Context, snapshot *domain.PlayerSnapshot) error {
	if snapshot == nil || snapshot.AccountID <= 0 {
		return fmt.Errorf("%w: cannot store snapshot without account id", domain.ErrIncompleteSnapshot)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[stubKey{snapshot.Region, snapshot.AccountID}] = snapshot.Clone()
	return nil
}

func (s *StubSnapshotRepository) GetLastSnapshot(ctx context.Context, region domain.Region, accountID int) (*domain.PlayerSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.snapshots[stubKey{region, accountID}]
	if !ok {
		return nil, domain.ErrSessionNotStarted
	}
	return snapshot.Clone(), nil
}
