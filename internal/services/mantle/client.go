package mantle

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var weiPerToken = new(big.Float).SetFloat64(1e18)

// Client wraps an ethclient connection to a Mantle RPC endpoint.
type Client struct {
	eth    *ethclient.Client
	logger *slog.Logger
}

// Dial connects to the RPC endpoint with bounded retries.
func Dial(ctx context.Context, rawURL string, attempts int, delay time.Duration, logger *slog.Logger) (*Client, error) {
	if attempts <= 0 {
		attempts = 3
	}
	if delay <= 0 {
		delay = 1500 * time.Millisecond
	}

	var (
		cli *ethclient.Client
		err error
	)

	for attempt := 1; attempt <= attempts; attempt++ {
		cli, err = ethclient.DialContext(ctx, rawURL)
		if err == nil {
			return &Client{eth: cli, logger: logger}, nil
		}

		logger.Warn("RPC dial failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Any("error", err),
		)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("failed to dial RPC after %d attempts: %w", attempts, err)
}

// NativeBalance returns the wallet's native MNT balance in whole
// tokens at the latest block.
func (c *Client) NativeBalance(ctx context.Context, wallet string) (float64, error) {
	balanceWei, err := c.eth.BalanceAt(ctx, common.HexToAddress(wallet), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch balance: %w", err)
	}

	balance, _ := new(big.Float).Quo(new(big.Float).SetInt(balanceWei), weiPerToken).Float64()
	return balance, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}
