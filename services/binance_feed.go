package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/shopspring/decimal"
)

// BinanceAPIURL is the base URL for the Binance public market data API
const BinanceAPIURL = "https://api.binance.com"

// binanceTickerResponse represents the Binance 24hr ticker response
type binanceTickerResponse struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	OpenPrice   string `json:"openPrice"`
	HighPrice   string `json:"highPrice"`
	LowPrice    string `json:"lowPrice"`
	Volume      string `json:"volume"`
	QuoteVolume string `json:"quoteVolume"`
	CloseTime   int64  `json:"closeTime"`
}

// BinanceFeed fetches live crypto prices from the Binance public API.
// Asset symbols are quoted against USDT, so "BTC" queries BTCUSDT.
type BinanceFeed struct {
	baseURL    string
	httpClient *http.Client
}

// NewBinanceFeed creates a feed against the public Binance API
func NewBinanceFeed() *BinanceFeed {
	return &BinanceFeed{
		baseURL: BinanceAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewBinanceFeedWithBaseURL creates a feed against a custom endpoint
func NewBinanceFeedWithBaseURL(baseURL string) *BinanceFeed {
	feed := NewBinanceFeed()
	feed.baseURL = baseURL
	return feed
}

// FetchTick fetches the current 24hr ticker for the asset and converts it
// into a price tick
func (f *BinanceFeed) FetchTick(ctx context.Context, asset models.Asset) (*models.PriceTick, error) {
	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%sUSDT", f.baseURL, asset.Symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", asset.Symbol, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticker for %s: %w", asset.Symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ticker request for %s returned status %d: %s",
			asset.Symbol, resp.StatusCode, string(body))
	}

	var ticker binanceTickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return nil, fmt.Errorf("failed to decode ticker for %s: %w", asset.Symbol, err)
	}

	price, err := decimal.NewFromString(ticker.LastPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid last price %q for %s: %w", ticker.LastPrice, asset.Symbol, err)
	}

	tick := &models.PriceTick{
		AssetID:   asset.ID,
		Price:     price,
		Timestamp: time.Now().UTC(),
		Source:    "binance",
	}
	if open, err := decimal.NewFromString(ticker.OpenPrice); err == nil {
		tick.Open = &open
	}
	if high, err := decimal.NewFromString(ticker.HighPrice); err == nil {
		tick.High = &high
	}
	if low, err := decimal.NewFromString(ticker.LowPrice); err == nil {
		tick.Low = &low
	}
	if volume, err := decimal.NewFromString(ticker.Volume); err == nil {
		v := volume.IntPart()
		tick.Volume = &v
	}
	return tick, nil
}
