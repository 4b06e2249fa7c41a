package services

import (
	"sort"
	"sync"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
)

// MemoryPriceStore keeps ticks in process memory. It is used in tests and
// as a development fallback when no database is configured. Appends and
// reads are safe for concurrent use; readers see a consistent snapshot.
type MemoryPriceStore struct {
	mu     sync.RWMutex
	ticks  map[uint][]models.PriceTick
	nextID uint
}

// NewMemoryPriceStore creates an empty in-memory price store
func NewMemoryPriceStore() *MemoryPriceStore {
	return &MemoryPriceStore{
		ticks: make(map[uint][]models.PriceTick),
	}
}

// Append validates and records a tick
func (s *MemoryPriceStore) Append(tick *models.PriceTick) error {
	if err := tick.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	stored := *tick
	stored.ID = s.nextID
	stored.CreatedAt = time.Now()
	s.ticks[tick.AssetID] = append(s.ticks[tick.AssetID], stored)
	tick.ID = stored.ID
	return nil
}

// Query returns ticks in [from, to] ordered by timestamp ascending.
// Ticks with equal timestamps keep their append order.
func (s *MemoryPriceStore) Query(assetID uint, from, to time.Time) ([]models.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.PriceTick, 0)
	for _, tick := range s.ticks[assetID] {
		if !tick.Timestamp.Before(from) && !tick.Timestamp.After(to) {
			result = append(result, tick)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// Latest returns the most recent tick, ties broken by most-recently-appended
func (s *MemoryPriceStore) Latest(assetID uint) (*models.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.PriceTick
	for i := range s.ticks[assetID] {
		tick := &s.ticks[assetID][i]
		if latest == nil || !tick.Timestamp.Before(latest.Timestamp) {
			latest = tick
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

// BaselineAtOrBefore returns the newest tick at or before t, or nil if none exists
func (s *MemoryPriceStore) BaselineAtOrBefore(assetID uint, t time.Time) (*models.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var baseline *models.PriceTick
	for i := range s.ticks[assetID] {
		tick := &s.ticks[assetID][i]
		if tick.Timestamp.After(t) {
			continue
		}
		if baseline == nil || !tick.Timestamp.Before(baseline.Timestamp) {
			baseline = tick
		}
	}
	if baseline == nil {
		return nil, nil
	}
	copied := *baseline
	return &copied, nil
}
