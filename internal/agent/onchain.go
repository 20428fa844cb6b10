package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/pipeline"
	"github.com/fluxolabs/fluxo-backend/internal/services/dexscreener"
	"github.com/fluxolabs/fluxo-backend/internal/services/insights"
	"github.com/fluxolabs/fluxo-backend/internal/validate"
	"golang.org/x/sync/errgroup"
)

// Wrapped MNT on Mantle; used to price the native balance on the
// live-fetch path.
const wmntTokenAddress = "0x78c1b0c915c4faa5fffa6cabf0219da63d7f4cb8"

const (
	DataSourcePipeline = "pipeline"
	DataSourceLive     = "live"
)

// PortfolioSource reads precomputed portfolio snapshots.
type PortfolioSource interface {
	PortfolioSnapshot(ctx context.Context, wallet string) ([]pipeline.Holding, error)
}

// BalanceFetcher reads a wallet's native balance from the chain.
type BalanceFetcher interface {
	NativeBalance(ctx context.Context, wallet string) (float64, error)
}

// PriceFetcher resolves a token's current USD price.
type PriceFetcher interface {
	TokenPrice(ctx context.Context, tokenAddress string) (*dexscreener.PriceInfo, error)
}

// Insighter generates portfolio insight text.
type Insighter interface {
	PortfolioInsights(ctx context.Context, input insights.Input) (string, error)
}

// OnchainInput is the validated payload of an onchain analysis job.
type OnchainInput struct {
	Wallet  string `json:"wallet"`
	Network string `json:"network"`
}

// OnchainHolding is one position in the assembled portfolio.
type OnchainHolding struct {
	TokenAddress string  `json:"token_address,omitempty"`
	TokenSymbol  string  `json:"token_symbol"`
	Balance      float64 `json:"balance"`
	PriceUSD     float64 `json:"price_usd"`
	ValueUSD     float64 `json:"value_usd"`
	PortfolioPct float64 `json:"portfolio_pct"`
}

// OnchainResult is the JSON payload stored on SUCCESS.
type OnchainResult struct {
	Wallet        string           `json:"wallet"`
	Network       string           `json:"network"`
	DataSource    string           `json:"data_source"`
	Holdings      []OnchainHolding `json:"holdings"`
	TotalValueUSD float64          `json:"total_value_usd"`
	Insights      string           `json:"insights,omitempty"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

func (r *OnchainResult) Validate() error {
	if r.Wallet == "" {
		return fmt.Errorf("wallet is required")
	}
	if r.DataSource != DataSourcePipeline && r.DataSource != DataSourceLive {
		return fmt.Errorf("invalid data source %q", r.DataSource)
	}
	if r.TotalValueUSD < 0 {
		return fmt.Errorf("total value must not be negative")
	}
	for i, h := range r.Holdings {
		if h.TokenSymbol == "" {
			return fmt.Errorf("holding %d has no token symbol", i)
		}
	}
	return nil
}

// OnchainAgent assembles a wallet portfolio. The precomputed pipeline
// snapshot is preferred; when it is missing or stale the agent fetches
// the native balance and price live.
type OnchainAgent struct {
	pipeline PortfolioSource
	chain    BalanceFetcher
	prices   PriceFetcher
	insights Insighter
	network  string
	logger   *slog.Logger
}

// OnchainAgentConfig wires the onchain agent's collaborators.
// Chain and Prices may be nil when no RPC endpoint is configured;
// Insights may be nil when insight generation is disabled.
type OnchainAgentConfig struct {
	Pipeline PortfolioSource
	Chain    BalanceFetcher
	Prices   PriceFetcher
	Insights Insighter
	Network  string
	Logger   *slog.Logger
}

func NewOnchainAgent(cfg OnchainAgentConfig) *OnchainAgent {
	return &OnchainAgent{
		pipeline: cfg.Pipeline,
		chain:    cfg.Chain,
		prices:   cfg.Prices,
		insights: cfg.Insights,
		network:  cfg.Network,
		logger:   cfg.Logger,
	}
}

func (a *OnchainAgent) Name() string {
	return "onchain"
}

func (a *OnchainAgent) Analyze(ctx context.Context, payload json.RawMessage) (Result, error) {
	var input OnchainInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return nil, WrapError(KindInvalidPayload, "malformed payload", err)
	}

	wallet, err := validate.WalletAddress(input.Wallet)
	if err != nil {
		return nil, WrapError(KindInvalidPayload, "invalid wallet address", err)
	}

	if input.Network != a.network {
		return nil, NewError(KindInvalidPayload,
			fmt.Sprintf("unsupported network %q", input.Network))
	}

	holdings, source, err := a.portfolio(ctx, wallet)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, h := range holdings {
		total += h.ValueUSD
	}

	result := &OnchainResult{
		Wallet:        wallet,
		Network:       input.Network,
		DataSource:    source,
		Holdings:      holdings,
		TotalValueUSD: total,
		GeneratedAt:   time.Now().UTC(),
	}

	result.Insights = a.generateInsights(ctx, result)

	return result, nil
}

// portfolio returns holdings from the pipeline snapshot, falling back
// to the live path when the snapshot is missing or stale.
func (a *OnchainAgent) portfolio(ctx context.Context, wallet string) ([]OnchainHolding, string, error) {
	snapshot, err := a.pipeline.PortfolioSnapshot(ctx, wallet)
	switch {
	case err == nil:
		holdings := make([]OnchainHolding, len(snapshot))
		for i, h := range snapshot {
			holdings[i] = OnchainHolding{
				TokenAddress: h.TokenAddress,
				TokenSymbol:  h.TokenSymbol,
				Balance:      h.Balance,
				PriceUSD:     h.PriceUSD,
				ValueUSD:     h.ValueUSD,
				PortfolioPct: h.PortfolioPct,
			}
		}
		return holdings, DataSourcePipeline, nil

	case errors.Is(err, pipeline.ErrArtifactMissing), errors.Is(err, pipeline.ErrArtifactStale):
		a.logger.Info("Pipeline snapshot unavailable, fetching live",
			slog.String("wallet", wallet),
			slog.String("reason", err.Error()),
		)
		holdings, liveErr := a.livePortfolio(ctx, wallet)
		if liveErr != nil {
			return nil, "", liveErr
		}
		return holdings, DataSourceLive, nil

	default:
		return nil, "", WrapError(KindProviderError, "failed to read portfolio snapshot", err)
	}
}

// livePortfolio assembles a minimal portfolio from the chain: the
// native MNT balance priced via DexScreener. Balance and price are
// fetched concurrently.
func (a *OnchainAgent) livePortfolio(ctx context.Context, wallet string) ([]OnchainHolding, error) {
	if a.chain == nil || a.prices == nil {
		return nil, NewError(KindProviderError, "no live data source configured")
	}

	var (
		balance float64
		price   *dexscreener.PriceInfo
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		balance, err = a.chain.NativeBalance(gctx, wallet)
		if err != nil {
			return wrapProviderError("failed to fetch native balance", err)
		}
		return nil
	})

	g.Go(func() error {
		var err error
		price, err = a.prices.TokenPrice(gctx, wmntTokenAddress)
		if err != nil {
			return wrapProviderError("failed to fetch MNT price", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return []OnchainHolding{
		{
			TokenAddress: wmntTokenAddress,
			TokenSymbol:  "MNT",
			Balance:      balance,
			PriceUSD:     price.PriceUSD,
			ValueUSD:     balance * price.PriceUSD,
			PortfolioPct: 100,
		},
	}, nil
}

func (a *OnchainAgent) generateInsights(ctx context.Context, result *OnchainResult) string {
	if a.insights == nil {
		return ""
	}

	input := insights.Input{
		Wallet:        result.Wallet,
		Network:       result.Network,
		DataSource:    result.DataSource,
		TotalValueUSD: result.TotalValueUSD,
	}
	for _, h := range result.Holdings {
		input.Holdings = append(input.Holdings, insights.Holding{
			Symbol:       h.TokenSymbol,
			ValueUSD:     h.ValueUSD,
			PortfolioPct: h.PortfolioPct,
		})
	}

	text, err := a.insights.PortfolioInsights(ctx, input)
	if err != nil {
		a.logger.Warn("Insights generation failed, using fallback",
			slog.String("wallet", result.Wallet),
			slog.Any("error", err),
		)
		return insights.Fallback(input)
	}

	return text
}

// wrapProviderError keeps timeout failures distinguishable from other
// provider failures in the stored error kind.
func wrapProviderError(message string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapError(KindProviderTimeout, message, err)
	}
	return WrapError(KindProviderError, message, err)
}
