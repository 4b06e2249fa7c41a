package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"gorm.io/gorm"
)

// PriceStore is the append-only time-series log of price ticks. Insertion
// order is not guaranteed to match chronological order; all reads sort and
// filter by timestamp. Implementations must tolerate concurrent appends
// and reads.
type PriceStore interface {
	// Append validates and persists a tick. Returns models.ErrInvalidTick
	// when the tick fails validation; the store is left unchanged.
	Append(tick *models.PriceTick) error

	// Query returns ticks for the asset with timestamps in [from, to],
	// inclusive, ordered by timestamp ascending. An unknown asset or an
	// empty range yields an empty slice, not an error.
	Query(assetID uint, from, to time.Time) ([]models.PriceTick, error)

	// Latest returns the tick with the maximum timestamp, ties broken by
	// most-recently-appended. Returns nil when the asset has no ticks.
	Latest(assetID uint) (*models.PriceTick, error)

	// BaselineAtOrBefore returns the tick with the maximum timestamp <= t,
	// used as the 24h comparison point. Returns nil when none exists.
	BaselineAtOrBefore(assetID uint, t time.Time) (*models.PriceTick, error)
}

// GormPriceStore persists ticks in the relational database
type GormPriceStore struct {
	db *gorm.DB
}

// NewGormPriceStore creates a price store backed by the given database
func NewGormPriceStore(db *gorm.DB) *GormPriceStore {
	return &GormPriceStore{db: db}
}

// Append validates and inserts a tick
func (s *GormPriceStore) Append(tick *models.PriceTick) error {
	if err := tick.Validate(); err != nil {
		return err
	}
	if err := s.db.Create(tick).Error; err != nil {
		return fmt.Errorf("failed to store tick: %w", err)
	}
	return nil
}

// Query returns ticks in [from, to] ordered by timestamp ascending
func (s *GormPriceStore) Query(assetID uint, from, to time.Time) ([]models.PriceTick, error) {
	ticks := make([]models.PriceTick, 0)
	err := s.db.Where("asset_id = ? AND timestamp >= ? AND timestamp <= ?", assetID, from, to).
		Order("timestamp ASC, id ASC").
		Find(&ticks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	return ticks, nil
}

// Latest returns the most recent tick for the asset, or nil if none exists
func (s *GormPriceStore) Latest(assetID uint) (*models.PriceTick, error) {
	var tick models.PriceTick
	err := s.db.Where("asset_id = ?", assetID).
		Order("timestamp DESC, id DESC").
		First(&tick).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest tick: %w", err)
	}
	return &tick, nil
}

// BaselineAtOrBefore returns the newest tick at or before t, or nil if none exists
func (s *GormPriceStore) BaselineAtOrBefore(assetID uint, t time.Time) (*models.PriceTick, error) {
	var tick models.PriceTick
	err := s.db.Where("asset_id = ? AND timestamp <= ?", assetID, t).
		Order("timestamp DESC, id DESC").
		First(&tick).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load baseline tick: %w", err)
	}
	return &tick, nil
}
