package ledger

import (
	"context"
	"sync"

	"tubepost/internal/types"
)

// MemoryStore is an in-process Store with the same semantics as the
// PostgreSQL repository. It backs tests of the ledger and its callers.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*types.User
}

// NewMemoryStore returns an empty store seeded with users.
func NewMemoryStore(users ...*types.User) *MemoryStore {
	s := &MemoryStore{users: make(map[string]*types.User)}
	for _, u := range users {
		s.Put(u)
	}
	return s
}

// Put replaces a record.
func (s *MemoryStore) Put(u *types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	if cp.UsageHistory == nil {
		cp.UsageHistory = types.UsageHistory{}
	}
	s.users[u.ID] = &cp
}

// Snapshot returns a copy of a record, or nil.
func (s *MemoryStore) Snapshot(id string) *types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	cp.UsageHistory = make(types.UsageHistory, len(u.UsageHistory))
	for k, v := range u.UsageHistory {
		cp.UsageHistory[k] = v
	}
	return &cp
}

func (s *MemoryStore) Get(_ context.Context, id string) (*types.User, error) {
	if u := s.Snapshot(id); u != nil {
		return u, nil
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
}

func (s *MemoryStore) ResetDay(_ context.Context, id, today string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		u = types.NewDefaultUser(id)
		s.users[id] = u
	}
	if u.LastUsageDate != today {
		u.DailyCount = 0
		u.LastUsageDate = today
	}
	return nil
}

func (s *MemoryStore) CommitUsage(_ context.Context, id, today string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return 0, 0, types.NewAppError(types.ErrCodeNotFoundUser, "user not found", nil)
	}
	if u.LastUsageDate != today {
		u.DailyCount = 0
	}
	u.DailyCount++
	u.LastUsageDate = today
	u.UsageHistory[today]++
	if u.Plan == types.PlanFree {
		u.Credits = max(u.Credits-1, 0)
	}
	return u.DailyCount, u.Credits, nil
}

var _ Store = (*MemoryStore)(nil)
