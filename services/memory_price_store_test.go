package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPriceStoreAppendAndQuery(t *testing.T) {
	store := NewMemoryPriceStore()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(newTick(1, 100, ts, "test")))

	ticks, err := store.Query(1, ts, ts)
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.True(t, ticks[0].Price.Equal(decimal.NewFromInt(100)))

	ticks, err = store.Query(99, ts, ts)
	require.NoError(t, err)
	assert.Empty(t, ticks)
}

func TestMemoryPriceStoreRejectsInvalidTick(t *testing.T) {
	store := NewMemoryPriceStore()
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	err := store.Append(newTick(1, 0, ts, "test"))
	assert.ErrorIs(t, err, models.ErrInvalidTick)

	ticks, err := store.Query(1, ts.Add(-time.Hour), ts.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ticks)
}

func TestMemoryPriceStoreLatestTieBreak(t *testing.T) {
	store := NewMemoryPriceStore()
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(newTick(1, 100, ts, "coingecko")))
	require.NoError(t, store.Append(newTick(1, 101, ts, "binance")))

	latest, err := store.Latest(1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "binance", latest.Source)
}

func TestMemoryPriceStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryPriceStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	const assets = 8
	const ticksPerAsset = 200

	var wg sync.WaitGroup
	for a := 1; a <= assets; a++ {
		wg.Add(1)
		go func(assetID uint) {
			defer wg.Done()
			for i := 0; i < ticksPerAsset; i++ {
				tick := newTick(assetID, float64(int(assetID)*1000+i), base.Add(time.Duration(i)*time.Second), "test")
				if err := store.Append(tick); err != nil {
					t.Errorf("append failed for asset %d: %v", assetID, err)
					return
				}
			}
		}(uint(a))
	}
	wg.Wait()

	// Each asset's sequence is complete and uncorrupted by the others
	for a := 1; a <= assets; a++ {
		ticks, err := store.Query(uint(a), base, base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, ticks, ticksPerAsset, "asset %d", a)
		for i, tick := range ticks {
			assert.Equal(t, uint(a), tick.AssetID)
			expected := decimal.NewFromInt(int64(a*1000 + i))
			require.True(t, tick.Price.Equal(expected),
				fmt.Sprintf("asset %d tick %d: got %s want %s", a, i, tick.Price, expected))
		}
	}
}

func TestMemoryPriceStoreConcurrentReadsDuringAppends(t *testing.T) {
	store := NewMemoryPriceStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			_ = store.Append(newTick(1, float64(i+1), base.Add(time.Duration(i)*time.Second), "test"))
		}
	}()

	// Readers must always observe a consistent ascending snapshot
	for i := 0; i < 100; i++ {
		ticks, err := store.Query(1, base, base.Add(time.Hour))
		require.NoError(t, err)
		for j := 1; j < len(ticks); j++ {
			assert.False(t, ticks[j].Timestamp.Before(ticks[j-1].Timestamp))
		}
		_, err = store.Latest(1)
		require.NoError(t, err)
	}
	<-done
}
