package models

import (
	"time"

	"gorm.io/gorm"
)

// AssetType is a lookup table for asset categories (stock, crypto, ...)
type AssetType struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:50;not null" json:"name"`
	Description string    `gorm:"size:255" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Exchange represents a trading venue (Binance, NASDAQ, ...)
type Exchange struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Code        string    `gorm:"uniqueIndex;size:20;not null" json:"code"`
	Country     string    `gorm:"size:50" json:"country"`
	AssetTypeID uint      `gorm:"index" json:"asset_type_id"`
	APIEndpoint string    `gorm:"size:255" json:"api_endpoint"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Asset represents a tracked instrument (individual stock or coin).
// Related records are referenced by foreign-key IDs only; callers resolve
// exchange/type details through explicit lookups.
type Asset struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"index:idx_symbol_exchange,unique;size:20;not null" json:"symbol"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	ExchangeID  uint      `gorm:"index:idx_symbol_exchange,unique" json:"exchange_id"`
	AssetTypeID uint      `gorm:"index" json:"asset_type_id"`
	Description string    `gorm:"type:text" json:"description"`
	MarketCap   *int64    `json:"market_cap"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssetUpdate is a sparse patch applied onto an existing asset.
// Nil fields leave the current value unchanged.
type AssetUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MarketCap   *int64  `json:"market_cap"`
	IsActive    *bool   `json:"is_active"`
}

// MigrateAssetModels runs database migrations for registry models
func MigrateAssetModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&AssetType{},
		&Exchange{},
		&Asset{},
	)
}

// SeedLookupTables inserts default asset types and exchanges when the
// lookup tables are empty
func SeedLookupTables(db *gorm.DB) error {
	var count int64
	if err := db.Model(&AssetType{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	types := []AssetType{
		{Name: "stock", Description: "Equities"},
		{Name: "crypto", Description: "Cryptocurrencies"},
	}
	if err := db.Create(&types).Error; err != nil {
		return err
	}

	exchanges := []Exchange{
		{Name: "Binance", Code: "BINANCE", Country: "Global", AssetTypeID: types[1].ID},
		{Name: "NASDAQ", Code: "NASDAQ", Country: "US", AssetTypeID: types[0].ID},
	}
	return db.Create(&exchanges).Error
}
