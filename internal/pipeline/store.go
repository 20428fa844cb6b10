package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fluxolabs/fluxo-backend/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

var (
	// ErrArtifactMissing is returned when no precomputed rows exist
	// for the requested key.
	ErrArtifactMissing = errors.New("pipeline artifact missing")

	// ErrArtifactStale is returned when rows exist but are older than
	// the configured max age. Callers with a live path fall back to it.
	ErrArtifactStale = errors.New("pipeline artifact stale")
)

// Store reads the denormalized datasets the external ingestion
// pipeline maintains. All reads are freshness-checked.
type Store struct {
	db     *sqlx.DB
	maxAge time.Duration
	now    func() time.Time
}

func NewStore(pg *postgresql.Client, maxAge time.Duration) *Store {
	return NewStoreWithDB(pg.GetDB(), maxAge)
}

// NewStoreWithDB wires an existing sqlx handle; used by tests.
func NewStoreWithDB(db *sqlx.DB, maxAge time.Duration) *Store {
	return &Store{
		db:     db,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Fresh reports whether an artifact refreshed at the given time is
// still within the configured max age.
func Fresh(refreshedAt time.Time, maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(refreshedAt) <= maxAge
}

// Holding is one row of a wallet's precomputed portfolio snapshot.
type Holding struct {
	WalletAddress string    `db:"wallet_address"`
	TokenAddress  string    `db:"token_address"`
	TokenSymbol   string    `db:"token_symbol"`
	Balance       float64   `db:"balance"`
	PriceUSD      float64   `db:"price_usd"`
	ValueUSD      float64   `db:"value_usd"`
	PortfolioPct  float64   `db:"portfolio_pct"`
	RefreshedAt   time.Time `db:"refreshed_at"`
}

// PortfolioSnapshot returns the wallet's precomputed holdings.
// The snapshot's oldest row decides freshness: a partially refreshed
// snapshot is treated as stale.
func (s *Store) PortfolioSnapshot(ctx context.Context, wallet string) ([]Holding, error) {
	query := `
		SELECT wallet_address, token_address, token_symbol,
		       balance, price_usd, value_usd, portfolio_pct, refreshed_at
		FROM portfolio_snapshots
		WHERE wallet_address = $1
		ORDER BY value_usd DESC
	`

	var holdings []Holding
	if err := s.db.SelectContext(ctx, &holdings, query, wallet); err != nil {
		return nil, fmt.Errorf("failed to read portfolio snapshot: %w", err)
	}

	if len(holdings) == 0 {
		return nil, ErrArtifactMissing
	}

	now := s.now()
	for _, h := range holdings {
		if !Fresh(h.RefreshedAt, s.maxAge, now) {
			return nil, ErrArtifactStale
		}
	}

	return holdings, nil
}

// ProtocolTVL is one row of the DeFiLlama protocol ingestion.
type ProtocolTVL struct {
	Slug        string    `db:"slug"`
	Name        string    `db:"name"`
	Chain       string    `db:"chain"`
	Category    string    `db:"category"`
	TVLUSD      float64   `db:"tvl_usd"`
	URL         string    `db:"url"`
	RefreshedAt time.Time `db:"refreshed_at"`
}

// ProtocolBySlug returns one tracked protocol's TVL row.
func (s *Store) ProtocolBySlug(ctx context.Context, slug string) (*ProtocolTVL, error) {
	query := `
		SELECT slug, name, chain, category, tvl_usd, url, refreshed_at
		FROM protocol_tvl
		WHERE slug = $1
	`

	var row ProtocolTVL
	if err := s.db.GetContext(ctx, &row, query, slug); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrArtifactMissing
		}
		return nil, fmt.Errorf("failed to read protocol tvl: %w", err)
	}

	if !Fresh(row.RefreshedAt, s.maxAge, s.now()) {
		return nil, ErrArtifactStale
	}

	return &row, nil
}

// ListProtocols returns all tracked protocols, largest TVL first.
func (s *Store) ListProtocols(ctx context.Context) ([]ProtocolTVL, error) {
	query := `
		SELECT slug, name, chain, category, tvl_usd, url, refreshed_at
		FROM protocol_tvl
		ORDER BY tvl_usd DESC
	`

	var rows []ProtocolTVL
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list protocol tvl: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrArtifactMissing
	}

	now := s.now()
	fresh := rows[:0]
	for _, row := range rows {
		if Fresh(row.RefreshedAt, s.maxAge, now) {
			fresh = append(fresh, row)
		}
	}

	if len(fresh) == 0 {
		return nil, ErrArtifactStale
	}

	return fresh, nil
}

// YieldPool is one row of the DeFiLlama yields ingestion.
type YieldPool struct {
	Project     string    `db:"project"`
	Symbol      string    `db:"symbol"`
	TVLUSD      float64   `db:"tvl_usd"`
	APY         float64   `db:"apy"`
	APYBase     float64   `db:"apy_base"`
	APYReward   float64   `db:"apy_reward"`
	RefreshedAt time.Time `db:"refreshed_at"`
}

// YieldPools returns a project's pools, highest APY first. Stale rows
// are filtered rather than failing the read: pools are advisory data.
func (s *Store) YieldPools(ctx context.Context, project string) ([]YieldPool, error) {
	query := `
		SELECT project, symbol, tvl_usd, apy, apy_base, apy_reward, refreshed_at
		FROM yield_pools
		WHERE project = $1
		ORDER BY apy DESC
	`

	var rows []YieldPool
	if err := s.db.SelectContext(ctx, &rows, query, project); err != nil {
		return nil, fmt.Errorf("failed to read yield pools: %w", err)
	}

	now := s.now()
	fresh := rows[:0]
	for _, row := range rows {
		if Fresh(row.RefreshedAt, s.maxAge, now) {
			fresh = append(fresh, row)
		}
	}

	return fresh, nil
}

// PlatformSentiment is one precomputed per-platform sentiment block.
type PlatformSentiment struct {
	Platform      string    `db:"platform"`
	Timeframe     string    `db:"timeframe"`
	OverallScore  float64   `db:"overall_score"`
	Sentiment     string    `db:"sentiment"`
	TotalPosts    int       `db:"total_posts"`
	PositivePosts int       `db:"positive_posts"`
	NeutralPosts  int       `db:"neutral_posts"`
	NegativePosts int       `db:"negative_posts"`
	RefreshedAt   time.Time `db:"refreshed_at"`
}

// SentimentByTimeframe returns the precomputed sentiment blocks for
// every platform at the given timeframe.
func (s *Store) SentimentByTimeframe(ctx context.Context, timeframe string) ([]PlatformSentiment, error) {
	query := `
		SELECT platform, timeframe, overall_score, sentiment, total_posts,
		       positive_posts, neutral_posts, negative_posts, refreshed_at
		FROM platform_sentiment
		WHERE timeframe = $1
		ORDER BY platform
	`

	var rows []PlatformSentiment
	if err := s.db.SelectContext(ctx, &rows, query, timeframe); err != nil {
		return nil, fmt.Errorf("failed to read platform sentiment: %w", err)
	}

	if len(rows) == 0 {
		return nil, ErrArtifactMissing
	}

	now := s.now()
	for _, row := range rows {
		if !Fresh(row.RefreshedAt, s.maxAge, now) {
			return nil, ErrArtifactStale
		}
	}

	return rows, nil
}
