package services

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/shopspring/decimal"
)

// PriceFeed produces raw price ticks for an asset. Real exchange adapters
// live outside this service; the scheduler only depends on this interface.
type PriceFeed interface {
	FetchTick(ctx context.Context, asset models.Asset) (*models.PriceTick, error)
}

// RandomWalkFeed generates synthetic ticks by random-walking each asset's
// last price. It stands in for real exchange adapters in development and
// tests.
type RandomWalkFeed struct {
	mu     sync.Mutex
	last   map[uint]decimal.Decimal
	rng    *rand.Rand
	source string
}

// NewRandomWalkFeed creates a feed seeded for reproducible sequences
func NewRandomWalkFeed(seed int64) *RandomWalkFeed {
	return &RandomWalkFeed{
		last:   make(map[uint]decimal.Decimal),
		rng:    rand.New(rand.NewSource(seed)),
		source: "random_walk",
	}
}

// FetchTick returns the next synthetic tick for the asset
func (f *RandomWalkFeed) FetchTick(_ context.Context, asset models.Asset) (*models.PriceTick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	price, ok := f.last[asset.ID]
	if !ok {
		price = decimal.NewFromFloat(f.rng.Float64()*1000 + 1)
	}

	// Move the price by up to +-1%, staying positive
	step := decimal.NewFromFloat(1 + (f.rng.Float64()-0.5)/50)
	price = price.Mul(step)
	if !price.IsPositive() {
		price = decimal.NewFromInt(1)
	}
	f.last[asset.ID] = price

	spread := price.Mul(decimal.NewFromFloat(0.005))
	high := price.Add(spread)
	low := price.Sub(spread)
	volume := f.rng.Int63n(1_000_000)

	return &models.PriceTick{
		AssetID:   asset.ID,
		Price:     price,
		High:      &high,
		Low:       &low,
		Volume:    &volume,
		Timestamp: time.Now().UTC(),
		Source:    f.source,
	}, nil
}
