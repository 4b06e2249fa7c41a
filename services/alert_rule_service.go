package services

import (
	"errors"
	"fmt"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"gorm.io/gorm"
)

// ErrRuleNotFound is returned for lookups of unknown alert rules
var ErrRuleNotFound = errors.New("alert rule not found")

// AlertRuleService manages user-defined alert rules
type AlertRuleService struct {
	db *gorm.DB
}

// NewAlertRuleService creates a new alert rule service
func NewAlertRuleService(db *gorm.DB) *AlertRuleService {
	return &AlertRuleService{db: db}
}

// CreateRule stores a new alert rule after validating its kind
func (s *AlertRuleService) CreateRule(rule *models.AlertRule) error {
	if !rule.Kind.Valid() {
		return fmt.Errorf("unknown alert kind %q", rule.Kind)
	}
	rule.Enabled = true
	if err := s.db.Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create alert rule: %w", err)
	}
	return nil
}

// ListRules returns all rules for an asset
func (s *AlertRuleService) ListRules(assetID uint) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	if err := s.db.Where("asset_id = ?", assetID).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return rules, nil
}

// ListEnabledRules returns the enabled rules for an asset; the scheduler
// evaluates these on each alert-check tick
func (s *AlertRuleService) ListEnabledRules(assetID uint) ([]models.AlertRule, error) {
	var rules []models.AlertRule
	if err := s.db.Where("asset_id = ? AND enabled = ?", assetID, true).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list enabled alert rules: %w", err)
	}
	return rules, nil
}

// UpdateRule applies a sparse patch onto an existing rule
func (s *AlertRuleService) UpdateRule(id uint, patch models.AlertRuleUpdate) (*models.AlertRule, error) {
	var rule models.AlertRule
	if err := s.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to load alert rule: %w", err)
	}

	if patch.Threshold != nil {
		rule.Threshold = *patch.Threshold
	}
	if patch.Enabled != nil {
		rule.Enabled = *patch.Enabled
	}

	if err := s.db.Save(&rule).Error; err != nil {
		return nil, fmt.Errorf("failed to update alert rule: %w", err)
	}
	return &rule, nil
}

// DeleteRule removes a rule
func (s *AlertRuleService) DeleteRule(id uint) error {
	result := s.db.Delete(&models.AlertRule{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alert rule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRuleNotFound
	}
	return nil
}
