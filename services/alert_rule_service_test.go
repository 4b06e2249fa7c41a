package services

import (
	"testing"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertRuleLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewAlertRuleService(db)

	rule := &models.AlertRule{
		AssetID:   1,
		Kind:      models.AlertPriceAbove,
		Threshold: decimal.NewFromInt(50000),
	}
	require.NoError(t, svc.CreateRule(rule))
	assert.True(t, rule.Enabled)

	// Unknown kinds are rejected at creation
	bad := &models.AlertRule{AssetID: 1, Kind: "price_sideways", Threshold: decimal.NewFromInt(1)}
	assert.Error(t, svc.CreateRule(bad))

	rules, err := svc.ListRules(1)
	require.NoError(t, err)
	assert.Len(t, rules, 1)

	// Disabling removes the rule from the scheduler's view
	enabled := false
	_, err = svc.UpdateRule(rule.ID, models.AlertRuleUpdate{Enabled: &enabled})
	require.NoError(t, err)

	active, err := svc.ListEnabledRules(1)
	require.NoError(t, err)
	assert.Empty(t, active)

	threshold := decimal.NewFromInt(60000)
	updated, err := svc.UpdateRule(rule.ID, models.AlertRuleUpdate{Threshold: &threshold})
	require.NoError(t, err)
	assert.True(t, updated.Threshold.Equal(threshold))
	assert.False(t, updated.Enabled)

	require.NoError(t, svc.DeleteRule(rule.ID))
	assert.ErrorIs(t, svc.DeleteRule(rule.ID), ErrRuleNotFound)

	_, err = svc.UpdateRule(rule.ID, models.AlertRuleUpdate{Threshold: &threshold})
	assert.ErrorIs(t, err, ErrRuleNotFound)
}
