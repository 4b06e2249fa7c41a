package services

import (
	"log"
	"sync"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
)

// AlertSink receives fired alert events. Sinks must not block for long;
// slow delivery is the sink's problem, not the evaluator's.
type AlertSink interface {
	Notify(event *models.AlertEvent)
}

// LogSink writes fired alerts to the application log
type LogSink struct{}

// Notify logs the fired alert
func (LogSink) Notify(event *models.AlertEvent) {
	log.Printf("Alert fired: asset %d rule %d (%s %s)",
		event.AssetID, event.Rule.ID, event.Rule.Kind, event.Rule.Threshold.String())
}

// AlertEvaluator evaluates threshold rules against asset stats snapshots.
// Alerts are edge-triggered: an event is emitted only when a rule's
// condition transitions from false to true, and the rule re-arms once the
// condition clears. Last-fired state is held in memory per process and
// resets on restart.
type AlertEvaluator struct {
	mu        sync.Mutex
	lastFired map[uint]bool
	sinks     []AlertSink
}

// NewAlertEvaluator creates an evaluator dispatching to the given sinks
func NewAlertEvaluator(sinks ...AlertSink) *AlertEvaluator {
	return &AlertEvaluator{
		lastFired: make(map[uint]bool),
		sinks:     sinks,
	}
}

// AddSink registers an additional notification sink
func (e *AlertEvaluator) AddSink(sink AlertSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sink)
}

// Evaluate checks each rule against the stats snapshot and returns the
// events that fired. Rules referencing a stat that is not yet computable
// are skipped without touching their state. Rules with an unknown kind are
// logged and skipped; they never abort the evaluation.
func (e *AlertEvaluator) Evaluate(rules []models.AlertRule, stats *models.AssetStats, now time.Time) []models.AlertEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	fired := make([]models.AlertEvent, 0)
	for i := range rules {
		rule := &rules[i]
		if !rule.Enabled {
			continue
		}

		condition, ok := evaluateCondition(rule, stats)
		if !ok {
			continue
		}

		if condition && !e.lastFired[rule.ID] {
			event := models.AlertEvent{
				AssetID: rule.AssetID,
				Rule:    *rule,
				Stats:   *stats,
				FiredAt: now,
			}
			fired = append(fired, event)
			for _, sink := range e.sinks {
				sink.Notify(&event)
			}
		}
		e.lastFired[rule.ID] = condition
	}
	return fired
}

// evaluateCondition reports whether the rule's condition currently holds.
// The second return value is false when the rule cannot be evaluated this
// tick (missing stat field or unrecognized kind).
func evaluateCondition(rule *models.AlertRule, stats *models.AssetStats) (bool, bool) {
	switch rule.Kind {
	case models.AlertPriceAbove:
		if stats.CurrentPrice == nil {
			return false, false
		}
		return stats.CurrentPrice.GreaterThan(rule.Threshold), true
	case models.AlertPriceBelow:
		if stats.CurrentPrice == nil {
			return false, false
		}
		return stats.CurrentPrice.LessThan(rule.Threshold), true
	case models.AlertPercentChangeAbove:
		if stats.PriceChangePercent24h == nil {
			return false, false
		}
		return stats.PriceChangePercent24h.GreaterThan(rule.Threshold), true
	case models.AlertPercentChangeBelow:
		if stats.PriceChangePercent24h == nil {
			return false, false
		}
		return stats.PriceChangePercent24h.LessThan(rule.Threshold), true
	default:
		log.Printf("Skipping alert rule %d: unknown kind %q", rule.ID, rule.Kind)
		return false, false
	}
}
