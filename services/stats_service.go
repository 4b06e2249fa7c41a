package services

import (
	"fmt"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/shopspring/decimal"
)

// DefaultStatsWindow is the rolling window used for derived statistics
const DefaultStatsWindow = 24 * time.Hour

var oneHundred = decimal.NewFromInt(100)

// StatsService computes rolling-window statistics from the price store.
// It holds no state of its own: the result depends only on stored ticks
// and the reference time, so recomputation is deterministic.
type StatsService struct {
	store  PriceStore
	window time.Duration
}

// NewStatsService creates a stats service over the given price store
func NewStatsService(store PriceStore) *StatsService {
	return &StatsService{
		store:  store,
		window: DefaultStatsWindow,
	}
}

// Compute derives AssetStats for the asset at reference time now.
// Missing history produces nil fields, never an error: an asset with no
// ticks yields stats with only the asset ID set.
func (s *StatsService) Compute(assetID uint, now time.Time) (*models.AssetStats, error) {
	stats := &models.AssetStats{AssetID: assetID}

	current, err := s.store.Latest(assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	if current == nil {
		return stats, nil
	}

	stats.CurrentPrice = &current.Price
	lastUpdated := current.Timestamp
	stats.LastUpdated = &lastUpdated

	windowStart := now.Add(-s.window)
	window, err := s.store.Query(assetID, windowStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	if len(window) > 0 {
		high := window[0].HighOrPrice()
		low := window[0].LowOrPrice()
		var volume int64
		for i := range window {
			tick := &window[i]
			if h := tick.HighOrPrice(); h.GreaterThan(high) {
				high = h
			}
			if l := tick.LowOrPrice(); l.LessThan(low) {
				low = l
			}
			if tick.Volume != nil {
				volume += *tick.Volume
			}
		}
		stats.High24h = &high
		stats.Low24h = &low
		stats.Volume24h = &volume
	}

	baseline, err := s.store.BaselineAtOrBefore(assetID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	if baseline == nil {
		return stats, nil
	}

	stats.Price24hAgo = &baseline.Price
	change := current.Price.Sub(baseline.Price)
	stats.PriceChange24h = &change

	// A zero baseline price makes the percent change undefined; report
	// absence rather than dividing by zero.
	if !baseline.Price.IsZero() {
		percent := change.Div(baseline.Price).Mul(oneHundred)
		stats.PriceChangePercent24h = &percent
	}

	return stats, nil
}
