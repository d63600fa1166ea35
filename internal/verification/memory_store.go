package verification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type memoryEntry struct {
	owner     string
	expiresAt time.Time
	redeemed  bool
}

// MemoryStore keeps tokens in process memory. A restart invalidates every
// outstanding token.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, value, owner string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.entries[value]; ok && !e.redeemed && now.Before(e.expiresAt) {
		return ErrTokenExists
	}
	s.entries[value] = &memoryEntry{owner: owner, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Redeem(ctx context.Context, value string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[value]
	if !ok || e.redeemed || !s.now().Before(e.expiresAt) {
		return "", false, nil
	}
	e.redeemed = true
	return e.owner, true, nil
}

// Sweep drops expired and redeemed entries and reports how many went.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for v, e := range s.entries {
		if e.redeemed || !now.Before(e.expiresAt) {
			delete(s.entries, v)
			n++
		}
	}
	return n
}

// Len is the number of entries currently held, including ones not yet swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RunJanitor sweeps every interval until ctx is done.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && logger != nil {
				logger.Debug("swept verification tokens", "removed", n)
			}
		}
	}
}
