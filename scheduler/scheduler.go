package scheduler

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/kimtaehoon222/crypto-stock-monitor/services"
)

// Registry lists the assets the scheduler processes each price-update tick
type Registry interface {
	ListActiveAssets() ([]models.Asset, error)
}

// RuleSource provides the enabled alert rules for an asset
type RuleSource interface {
	ListEnabledRules(assetID uint) ([]models.AlertRule, error)
}

// Scheduler manages the periodic price-update and alert-check jobs
type Scheduler struct {
	cron      *gocron.Scheduler
	registry  Registry
	rules     RuleSource
	store     services.PriceStore
	stats     *services.StatsService
	evaluator *services.AlertEvaluator
	feed      services.PriceFeed
	stream    *services.StreamHub

	priceInterval time.Duration
	alertInterval time.Duration
}

// NewScheduler creates a scheduler with the given collaborators. stream
// may be nil when tick broadcasting is disabled.
func NewScheduler(
	registry Registry,
	rules RuleSource,
	store services.PriceStore,
	stats *services.StatsService,
	evaluator *services.AlertEvaluator,
	feed services.PriceFeed,
	stream *services.StreamHub,
	priceInterval, alertInterval time.Duration,
) *Scheduler {
	return &Scheduler{
		cron:          gocron.NewScheduler(time.UTC),
		registry:      registry,
		rules:         rules,
		store:         store,
		stats:         stats,
		evaluator:     evaluator,
		feed:          feed,
		stream:        stream,
		priceInterval: priceInterval,
		alertInterval: alertInterval,
	}
}

// Start registers both jobs and begins firing ticks. Jobs run in
// singleton mode so an overlapping tick is skipped rather than stacked.
func (s *Scheduler) Start() {
	log.Printf("Starting scheduler (price update every %v, alert check every %v)",
		s.priceInterval, s.alertInterval)

	s.cron.Every(s.priceInterval).SingletonMode().Do(s.runPriceUpdate)
	s.cron.Every(s.alertInterval).SingletonMode().Do(s.runAlertCheck)

	s.cron.StartAsync()
	log.Println("Scheduler started successfully")
}

// Stop halts the scheduler. No new tick is dispatched after Stop returns;
// a tick already in flight completes.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Scheduler stopped")
}
