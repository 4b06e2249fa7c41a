package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"gorm.io/gorm"
)

// Registry errors
var (
	ErrAssetNotFound  = errors.New("asset not found")
	ErrDuplicateAsset = errors.New("asset with this symbol already exists on this exchange")
)

// AssetFilter narrows asset listings
type AssetFilter struct {
	AssetType    string
	ExchangeCode string
	Search       string
	Page         int
	Limit        int
}

// AssetService is the asset registry: CRUD over tracked assets plus the
// exchange and asset-type lookup tables
type AssetService struct {
	db *gorm.DB
}

// NewAssetService creates a new asset registry service
func NewAssetService(db *gorm.DB) *AssetService {
	return &AssetService{db: db}
}

// ListAssets returns active assets matching the filter, with the total
// count for pagination
func (s *AssetService) ListAssets(filter AssetFilter) ([]models.Asset, int64, error) {
	query := s.db.Model(&models.Asset{}).Where("assets.is_active = ?", true)

	if filter.AssetType != "" {
		query = query.Joins("JOIN asset_types ON asset_types.id = assets.asset_type_id").
			Where("asset_types.name = ?", filter.AssetType)
	}
	if filter.ExchangeCode != "" {
		query = query.Joins("JOIN exchanges ON exchanges.id = assets.exchange_id").
			Where("exchanges.code = ?", filter.ExchangeCode)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(assets.symbol) LIKE ? OR LOWER(assets.name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assets: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	var assets []models.Asset
	if err := query.Limit(limit).Offset((page - 1) * limit).Find(&assets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, total, nil
}

// GetAsset returns a single asset by ID
func (s *AssetService) GetAsset(id uint) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.First(&asset, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to load asset: %w", err)
	}
	return &asset, nil
}

// CreateAsset registers a new asset. Symbols are normalized to uppercase;
// the (symbol, exchange) pair must be unique.
func (s *AssetService) CreateAsset(asset *models.Asset) error {
	asset.Symbol = strings.ToUpper(strings.TrimSpace(asset.Symbol))
	asset.Name = strings.TrimSpace(asset.Name)
	if asset.Symbol == "" || asset.Name == "" {
		return errors.New("symbol and name are required")
	}

	var count int64
	err := s.db.Model(&models.Asset{}).
		Where("symbol = ? AND exchange_id = ?", asset.Symbol, asset.ExchangeID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check for duplicate asset: %w", err)
	}
	if count > 0 {
		return ErrDuplicateAsset
	}

	asset.IsActive = true
	if err := s.db.Create(asset).Error; err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}
	return nil
}

// UpdateAsset applies a sparse patch onto an existing asset: fields that
// are present override, absent fields leave the record unchanged
func (s *AssetService) UpdateAsset(id uint, patch models.AssetUpdate) (*models.Asset, error) {
	asset, err := s.GetAsset(id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, errors.New("asset name must not be empty")
		}
		asset.Name = name
	}
	if patch.Description != nil {
		asset.Description = *patch.Description
	}
	if patch.MarketCap != nil {
		asset.MarketCap = patch.MarketCap
	}
	if patch.IsActive != nil {
		asset.IsActive = *patch.IsActive
	}

	if err := s.db.Save(asset).Error; err != nil {
		return nil, fmt.Errorf("failed to update asset: %w", err)
	}
	return asset, nil
}

// DeactivateAsset soft-deletes an asset by clearing its active flag
func (s *AssetService) DeactivateAsset(id uint) error {
	asset, err := s.GetAsset(id)
	if err != nil {
		return err
	}
	asset.IsActive = false
	if err := s.db.Save(asset).Error; err != nil {
		return fmt.Errorf("failed to deactivate asset: %w", err)
	}
	return nil
}

// ListActiveAssets returns all active assets; the scheduler iterates this
// on each price-update tick
func (s *AssetService) ListActiveAssets() ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.db.Where("is_active = ?", true).Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("failed to list active assets: %w", err)
	}
	return assets, nil
}

// ListAssetTypes returns the asset-type lookup table
func (s *AssetService) ListAssetTypes() ([]models.AssetType, error) {
	var types []models.AssetType
	if err := s.db.Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to list asset types: %w", err)
	}
	return types, nil
}

// ListExchanges returns active exchanges, optionally filtered by asset type name
func (s *AssetService) ListExchanges(assetType string) ([]models.Exchange, error) {
	query := s.db.Model(&models.Exchange{}).Where("exchanges.is_active = ?", true)
	if assetType != "" {
		query = query.Joins("JOIN asset_types ON asset_types.id = exchanges.asset_type_id").
			Where("asset_types.name = ?", assetType)
	}

	var exchanges []models.Exchange
	if err := query.Find(&exchanges).Error; err != nil {
		return nil, fmt.Errorf("failed to list exchanges: %w", err)
	}
	return exchanges, nil
}
