package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/kimtaehoon222/crypto-stock-monitor/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRegistry serves a fixed asset list and counts how often it is read
type fakeRegistry struct {
	assets []models.Asset
	calls  atomic.Int64
	err    error
}

func (r *fakeRegistry) ListActiveAssets() ([]models.Asset, error) {
	r.calls.Add(1)
	return r.assets, r.err
}

// fakeRuleSource serves rules per asset
type fakeRuleSource struct {
	rules map[uint][]models.AlertRule
}

func (r *fakeRuleSource) ListEnabledRules(assetID uint) ([]models.AlertRule, error) {
	return r.rules[assetID], nil
}

// fakeFeed emits a fixed price per asset, or an error for broken assets
type fakeFeed struct {
	prices map[uint]float64
	broken map[uint]bool
}

func (f *fakeFeed) FetchTick(_ context.Context, asset models.Asset) (*models.PriceTick, error) {
	if f.broken[asset.ID] {
		return nil, fmt.Errorf("feed unavailable for %s", asset.Symbol)
	}
	return &models.PriceTick{
		AssetID:   asset.ID,
		Price:     decimal.NewFromFloat(f.prices[asset.ID]),
		Timestamp: time.Now().UTC(),
		Source:    "fake",
	}, nil
}

// flakyStore fails the first n appends with a transient error
type flakyStore struct {
	services.PriceStore
	mu       sync.Mutex
	failures int
	appends  int
}

func (s *flakyStore) Append(tick *models.PriceTick) error {
	s.mu.Lock()
	s.appends++
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if fail {
		return errors.New("connection reset")
	}
	return s.PriceStore.Append(tick)
}

// collectorSink records fired alert events
type collectorSink struct {
	mu     sync.Mutex
	events []models.AlertEvent
}

func (s *collectorSink) Notify(event *models.AlertEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
}

func assets(ids ...uint) []models.Asset {
	result := make([]models.Asset, 0, len(ids))
	for _, id := range ids {
		result = append(result, models.Asset{ID: id, Symbol: fmt.Sprintf("AST%d", id), IsActive: true})
	}
	return result
}

func newTestScheduler(registry Registry, rules RuleSource, store services.PriceStore, evaluator *services.AlertEvaluator, feed services.PriceFeed) *Scheduler {
	return NewScheduler(
		registry,
		rules,
		store,
		services.NewStatsService(store),
		evaluator,
		feed,
		nil,
		time.Minute,
		time.Minute,
	)
}

func TestPriceUpdateIsolatesPerAssetFailures(t *testing.T) {
	store := services.NewMemoryPriceStore()
	registry := &fakeRegistry{assets: assets(1, 2, 3)}
	feed := &fakeFeed{
		prices: map[uint]float64{1: 100, 3: 300},
		broken: map[uint]bool{2: true},
	}
	s := newTestScheduler(registry, &fakeRuleSource{}, store, services.NewAlertEvaluator(), feed)

	s.runPriceUpdate()

	// The broken asset must not abort the others
	for _, id := range []uint{1, 3} {
		latest, err := store.Latest(id)
		require.NoError(t, err)
		require.NotNil(t, latest, "asset %d", id)
	}
	latest, err := store.Latest(2)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestPriceUpdateRetriesTransientStoreErrors(t *testing.T) {
	store := &flakyStore{PriceStore: services.NewMemoryPriceStore(), failures: 1}
	registry := &fakeRegistry{assets: assets(1)}
	feed := &fakeFeed{prices: map[uint]float64{1: 100}}
	s := newTestScheduler(registry, &fakeRuleSource{}, store, services.NewAlertEvaluator(), feed)

	s.runPriceUpdate()

	// First append fails, the retry succeeds within the same tick
	latest, err := store.Latest(1)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, store.appends)
}

func TestPriceUpdateDoesNotRetryInvalidTicks(t *testing.T) {
	store := &flakyStore{PriceStore: services.NewMemoryPriceStore()}
	registry := &fakeRegistry{assets: assets(1)}
	feed := &fakeFeed{prices: map[uint]float64{1: -5}}
	s := newTestScheduler(registry, &fakeRuleSource{}, store, services.NewAlertEvaluator(), feed)

	s.runPriceUpdate()

	// Validation failures are final: exactly one attempt, nothing stored
	assert.Equal(t, 1, store.appends)
	latest, err := store.Latest(1)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestAlertCheckFiresEdgeTriggeredAlerts(t *testing.T) {
	store := services.NewMemoryPriceStore()
	now := time.Now().UTC()
	require.NoError(t, store.Append(&models.PriceTick{
		AssetID:   1,
		Price:     decimal.NewFromInt(110),
		Timestamp: now.Add(-time.Minute),
		Source:    "test",
	}))

	rules := &fakeRuleSource{rules: map[uint][]models.AlertRule{
		1: {{
			ID: 1, AssetID: 1, Kind: models.AlertPriceAbove,
			Threshold: decimal.NewFromInt(100), Enabled: true,
		}},
	}}
	sink := &collectorSink{}
	registry := &fakeRegistry{assets: assets(1)}
	s := newTestScheduler(registry, rules, store, services.NewAlertEvaluator(sink), &fakeFeed{})

	s.runAlertCheck()
	require.Len(t, sink.events, 1)
	assert.Equal(t, uint(1), sink.events[0].AssetID)
	assert.Equal(t, "AST1", sink.events[0].Stats.Symbol)

	// Condition still holds: no repeat notification on the next tick
	s.runAlertCheck()
	assert.Len(t, sink.events, 1)
}

func TestAlertCheckSkipsAssetsWithoutRules(t *testing.T) {
	store := services.NewMemoryPriceStore()
	sink := &collectorSink{}
	registry := &fakeRegistry{assets: assets(1, 2)}
	s := newTestScheduler(registry, &fakeRuleSource{}, store, services.NewAlertEvaluator(sink), &fakeFeed{})

	s.runAlertCheck()
	assert.Empty(t, sink.events)
}

func TestStopDispatchesNoNewTicks(t *testing.T) {
	store := services.NewMemoryPriceStore()
	registry := &fakeRegistry{assets: assets(1)}
	feed := &fakeFeed{prices: map[uint]float64{1: 100}}

	s := NewScheduler(
		registry,
		&fakeRuleSource{},
		store,
		services.NewStatsService(store),
		services.NewAlertEvaluator(),
		feed,
		nil,
		50*time.Millisecond,
		50*time.Millisecond,
	)

	s.Start()
	time.Sleep(300 * time.Millisecond)
	s.Stop()

	calls := registry.calls.Load()
	assert.Greater(t, calls, int64(0))

	// No tick may start after Stop returns
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, calls, registry.calls.Load())
}
