package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrInvalidTick is returned when an ingested tick fails validation.
// Invalid ticks are rejected and never stored.
var ErrInvalidTick = errors.New("invalid price tick")

// PriceTick is one timestamped price observation for an asset. Ticks are
// immutable once stored; duplicate timestamps from different sources are
// legal and distinguished by Source.
type PriceTick struct {
	ID        uint             `gorm:"primaryKey" json:"id"`
	AssetID   uint             `gorm:"index:idx_asset_timestamp;not null" json:"asset_id"`
	Price     decimal.Decimal  `gorm:"type:decimal(20,8);not null" json:"price"`
	Open      *decimal.Decimal `gorm:"type:decimal(20,8)" json:"open,omitempty"`
	High      *decimal.Decimal `gorm:"type:decimal(20,8)" json:"high,omitempty"`
	Low       *decimal.Decimal `gorm:"type:decimal(20,8)" json:"low,omitempty"`
	Close     *decimal.Decimal `gorm:"type:decimal(20,8)" json:"close,omitempty"`
	Volume    *int64           `json:"volume,omitempty"`
	MarketCap *int64           `json:"market_cap,omitempty"`
	Timestamp time.Time        `gorm:"index:idx_asset_timestamp;not null" json:"timestamp"`
	Source    string           `gorm:"size:50" json:"source"`
	CreatedAt time.Time        `json:"created_at"`
}

// Validate checks tick invariants: price must be positive and high must not
// be below low when both are present.
func (t *PriceTick) Validate() error {
	if !t.Price.IsPositive() {
		return ErrInvalidTick
	}
	if t.High != nil && t.Low != nil && t.High.LessThan(*t.Low) {
		return ErrInvalidTick
	}
	return nil
}

// HighOrPrice returns the tick high, falling back to the price when unset
func (t *PriceTick) HighOrPrice() decimal.Decimal {
	if t.High != nil {
		return *t.High
	}
	return t.Price
}

// LowOrPrice returns the tick low, falling back to the price when unset
func (t *PriceTick) LowOrPrice() decimal.Decimal {
	if t.Low != nil {
		return *t.Low
	}
	return t.Price
}

// AssetStats is the derived rolling-window view of an asset. It is never
// persisted; it is recomputed from stored ticks on each query. Fields are
// nil when there is not enough history to compute them.
type AssetStats struct {
	AssetID               uint             `json:"asset_id"`
	Symbol                string           `json:"symbol,omitempty"`
	Name                  string           `json:"name,omitempty"`
	CurrentPrice          *decimal.Decimal `json:"current_price"`
	Price24hAgo           *decimal.Decimal `json:"price_24h_ago"`
	PriceChange24h        *decimal.Decimal `json:"price_change_24h"`
	PriceChangePercent24h *decimal.Decimal `json:"price_change_percent_24h"`
	Volume24h             *int64           `json:"volume_24h"`
	High24h               *decimal.Decimal `json:"high_24h"`
	Low24h                *decimal.Decimal `json:"low_24h"`
	LastUpdated           *time.Time       `json:"last_updated"`
}

// MigratePriceModels runs database migrations for price models
func MigratePriceModels(db *gorm.DB) error {
	return db.AutoMigrate(&PriceTick{})
}
