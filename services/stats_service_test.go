package services

import (
	"testing"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeNoHistory(t *testing.T) {
	stats := NewStatsService(NewMemoryPriceStore())

	result, err := stats.Compute(1, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, uint(1), result.AssetID)
	assert.Nil(t, result.CurrentPrice)
	assert.Nil(t, result.Price24hAgo)
	assert.Nil(t, result.PriceChange24h)
	assert.Nil(t, result.PriceChangePercent24h)
	assert.Nil(t, result.Volume24h)
	assert.Nil(t, result.High24h)
	assert.Nil(t, result.Low24h)
	assert.Nil(t, result.LastUpdated)
}

func TestComputeFullDayScenario(t *testing.T) {
	store := NewMemoryPriceStore()
	stats := NewStatsService(store)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(newTick(1, 100, day, "test")))
	require.NoError(t, store.Append(newTick(1, 150, day.Add(12*time.Hour), "test")))
	require.NoError(t, store.Append(newTick(1, 90, day.Add(24*time.Hour), "test")))

	result, err := stats.Compute(1, day.Add(24*time.Hour))
	require.NoError(t, err)

	require.NotNil(t, result.CurrentPrice)
	assert.True(t, result.CurrentPrice.Equal(decimal.NewFromInt(90)))
	require.NotNil(t, result.Price24hAgo)
	assert.True(t, result.Price24hAgo.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, result.PriceChange24h)
	assert.True(t, result.PriceChange24h.Equal(decimal.NewFromInt(-10)))
	require.NotNil(t, result.PriceChangePercent24h)
	assert.True(t, result.PriceChangePercent24h.Equal(decimal.NewFromInt(-10)))
	require.NotNil(t, result.High24h)
	assert.True(t, result.High24h.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, result.Low24h)
	assert.True(t, result.Low24h.Equal(decimal.NewFromInt(90)))
	require.NotNil(t, result.LastUpdated)
	assert.Equal(t, day.Add(24*time.Hour), *result.LastUpdated)
}

func TestComputeIsIdempotent(t *testing.T) {
	store := NewMemoryPriceStore()
	stats := NewStatsService(store)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(newTick(1, 100, day, "test")))
	require.NoError(t, store.Append(newTick(1, 120, day.Add(6*time.Hour), "test")))

	now := day.Add(24 * time.Hour)
	first, err := stats.Compute(1, now)
	require.NoError(t, err)
	second, err := stats.Compute(1, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComputeHighLowFallbackAndVolume(t *testing.T) {
	store := NewMemoryPriceStore()
	stats := NewStatsService(store)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	// One tick with explicit high/low and volume, one bare tick
	high := decimal.NewFromInt(210)
	low := decimal.NewFromInt(95)
	volume := int64(5000)
	full := newTick(1, 200, day.Add(time.Hour), "test")
	full.High = &high
	full.Low = &low
	full.Volume = &volume
	require.NoError(t, store.Append(full))
	require.NoError(t, store.Append(newTick(1, 100, day.Add(2*time.Hour), "test")))

	result, err := stats.Compute(1, day.Add(3*time.Hour))
	require.NoError(t, err)

	require.NotNil(t, result.High24h)
	assert.True(t, result.High24h.Equal(decimal.NewFromInt(210)))
	require.NotNil(t, result.Low24h)
	assert.True(t, result.Low24h.Equal(decimal.NewFromInt(95)))
	require.NotNil(t, result.Volume24h)
	assert.Equal(t, int64(5000), *result.Volume24h)
}

func TestComputeNoBaseline(t *testing.T) {
	store := NewMemoryPriceStore()
	stats := NewStatsService(store)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	// Only recent ticks: nothing at or before now-24h
	require.NoError(t, store.Append(newTick(1, 100, day.Add(23*time.Hour), "test")))

	result, err := stats.Compute(1, day.Add(24*time.Hour))
	require.NoError(t, err)

	require.NotNil(t, result.CurrentPrice)
	assert.Nil(t, result.Price24hAgo)
	assert.Nil(t, result.PriceChange24h)
	assert.Nil(t, result.PriceChangePercent24h)
}

// zeroBaselineStore wraps a store to hand out a zero-price baseline, which
// Append would normally reject
type zeroBaselineStore struct {
	PriceStore
}

func (s zeroBaselineStore) BaselineAtOrBefore(assetID uint, t time.Time) (*models.PriceTick, error) {
	return &models.PriceTick{
		AssetID:   assetID,
		Price:     decimal.Zero,
		Timestamp: t,
	}, nil
}

func TestComputeZeroBaselineGuard(t *testing.T) {
	inner := NewMemoryPriceStore()
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, inner.Append(newTick(1, 100, day.Add(24*time.Hour), "test")))

	stats := NewStatsService(zeroBaselineStore{inner})
	result, err := stats.Compute(1, day.Add(24*time.Hour))
	require.NoError(t, err)

	// Change is still defined, percent change is not
	require.NotNil(t, result.PriceChange24h)
	assert.True(t, result.PriceChange24h.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, result.PriceChangePercent24h)
}
