package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrNoPairs is returned when DexScreener knows the token but has
	// no trading pairs for it.
	ErrNoPairs = errors.New("no trading pairs for token")
)

// PriceInfo is the subset of DexScreener pair data the agents use.
type PriceInfo struct {
	PriceUSD      float64 `json:"price_usd"`
	PriceChange1h float64 `json:"price_change_1h"`
}

// Client fetches token prices from the DexScreener public API.
// The response is a large loosely-shaped document; the two fields we
// need are pulled out with JMESPath instead of mirroring the payload
// in structs.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// TokenPrice returns the USD price and 1h change of the best pair for
// the given token address.
func (c *Client) TokenPrice(ctx context.Context, tokenAddress string) (*PriceInfo, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, tokenAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build dexscreener request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dexscreener request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dexscreener returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read dexscreener response: %w", err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode dexscreener response: %w", err)
	}

	priceRaw, err := jmespath.Search("pairs[0].priceUsd", doc)
	if err != nil {
		return nil, fmt.Errorf("failed to extract price: %w", err)
	}
	if priceRaw == nil {
		return nil, ErrNoPairs
	}

	// priceUsd arrives as a decimal string
	priceStr, ok := priceRaw.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected priceUsd type %T", priceRaw)
	}

	price, err := strconv.ParseFloat(priceStr, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse priceUsd %q: %w", priceStr, err)
	}

	info := &PriceInfo{PriceUSD: price}

	changeRaw, err := jmespath.Search("pairs[0].priceChange.h1", doc)
	if err == nil {
		if change, ok := changeRaw.(float64); ok {
			info.PriceChange1h = change
		}
	}

	c.logger.Debug("Fetched token price",
		slog.String("token", tokenAddress),
		slog.Float64("price_usd", info.PriceUSD),
	)

	return info, nil
}
