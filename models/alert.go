package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AlertKind identifies the threshold condition a rule evaluates
type AlertKind string

const (
	AlertPriceAbove         AlertKind = "price_above"
	AlertPriceBelow         AlertKind = "price_below"
	AlertPercentChangeAbove AlertKind = "percent_change_above"
	AlertPercentChangeBelow AlertKind = "percent_change_below"
)

// String returns the string representation of AlertKind
func (k AlertKind) String() string {
	return string(k)
}

// Valid reports whether the kind is one of the supported conditions
func (k AlertKind) Valid() bool {
	switch k {
	case AlertPriceAbove, AlertPriceBelow, AlertPercentChangeAbove, AlertPercentChangeBelow:
		return true
	}
	return false
}

// AlertRule is a user-defined threshold condition evaluated against the
// current asset stats on each alert-check tick
type AlertRule struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	AssetID   uint            `gorm:"index;not null" json:"asset_id"`
	Kind      AlertKind       `gorm:"size:50;not null" json:"kind"`
	Threshold decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"threshold"`
	Enabled   bool            `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AlertRuleUpdate is a sparse patch applied onto an existing rule.
// Nil fields leave the current value unchanged.
type AlertRuleUpdate struct {
	Threshold *decimal.Decimal `json:"threshold"`
	Enabled   *bool            `json:"enabled"`
}

// AlertEvent is emitted when a rule transitions from not-firing to firing.
// Events are dispatched to notification sinks and archived; they are not
// stored in the relational database.
type AlertEvent struct {
	AssetID uint       `json:"asset_id" bson:"asset_id"`
	Rule    AlertRule  `json:"rule" bson:"rule"`
	Stats   AssetStats `json:"stats" bson:"stats"`
	FiredAt time.Time  `json:"fired_at" bson:"fired_at"`
}

// MigrateAlertModels runs database migrations for alert models
func MigrateAlertModels(db *gorm.DB) error {
	return db.AutoMigrate(&AlertRule{})
}
