package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
)

// runPriceUpdate ingests one tick per active asset. A failure for one
// asset is logged and never aborts the rest of the tick.
func (s *Scheduler) runPriceUpdate() {
	assets, err := s.registry.ListActiveAssets()
	if err != nil {
		log.Printf("Price update tick aborted, cannot list assets: %v", err)
		return
	}

	failed := 0
	for _, asset := range assets {
		if err := s.updateAssetPrice(asset); err != nil {
			failed++
			log.Printf("Error updating price for %s: %v", asset.Symbol, err)
		}
	}

	if failed > 0 {
		log.Printf("Price update tick partially failed: %d/%d assets", failed, len(assets))
	} else {
		log.Printf("Fetched prices for %d assets", len(assets))
	}
}

// updateAssetPrice fetches and stores one tick for the asset
func (s *Scheduler) updateAssetPrice(asset models.Asset) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tick, err := s.feed.FetchTick(ctx, asset)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	if err := s.appendWithRetry(tick); err != nil {
		return err
	}

	if s.stream != nil {
		s.stream.BroadcastTick(tick)
	}
	return nil
}

// appendWithRetry stores a tick, retrying once on transient store errors.
// Validation failures are final and never retried.
func (s *Scheduler) appendWithRetry(tick *models.PriceTick) error {
	err := s.store.Append(tick)
	if err == nil || errors.Is(err, models.ErrInvalidTick) {
		return err
	}

	log.Printf("Transient store error for asset %d, retrying: %v", tick.AssetID, err)
	if err := s.store.Append(tick); err != nil {
		return fmt.Errorf("append failed after retry: %w", err)
	}
	return nil
}

// runAlertCheck evaluates enabled alert rules against fresh stats for
// every active asset. Per-asset failures are isolated and logged.
func (s *Scheduler) runAlertCheck() {
	assets, err := s.registry.ListActiveAssets()
	if err != nil {
		log.Printf("Alert check tick aborted, cannot list assets: %v", err)
		return
	}

	now := time.Now().UTC()
	fired := 0
	for _, asset := range assets {
		rules, err := s.rules.ListEnabledRules(asset.ID)
		if err != nil {
			log.Printf("Error loading alert rules for %s: %v", asset.Symbol, err)
			continue
		}
		if len(rules) == 0 {
			continue
		}

		stats, err := s.stats.Compute(asset.ID, now)
		if err != nil {
			log.Printf("Error computing stats for %s: %v", asset.Symbol, err)
			continue
		}
		stats.Symbol = asset.Symbol
		stats.Name = asset.Name

		fired += len(s.evaluator.Evaluate(rules, stats, now))
	}

	if fired > 0 {
		log.Printf("Alert check fired %d alerts across %d assets", fired, len(assets))
	}
}
