package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/pipeline"
	"github.com/fluxolabs/fluxo-backend/internal/services/auditfeed"
)

// AllProtocolsScope marks a result covering every tracked protocol.
const AllProtocolsScope = "all_mantle_protocols"

const maxTopPools = 5

// ProtocolSource reads precomputed protocol TVL rows.
type ProtocolSource interface {
	ProtocolBySlug(ctx context.Context, slug string) (*pipeline.ProtocolTVL, error)
	ListProtocols(ctx context.Context) ([]pipeline.ProtocolTVL, error)
}

// YieldSource reads precomputed yield pool rows.
type YieldSource interface {
	YieldPools(ctx context.Context, project string) ([]pipeline.YieldPool, error)
}

// AuditSource resolves curated audit records for a protocol.
type AuditSource interface {
	ProtocolAudit(protocol string) (*auditfeed.Audit, bool)
}

// MacroInput is the validated payload of a macro analysis job.
// An empty protocol requests the full tracked-protocol overview.
type MacroInput struct {
	Protocol string `json:"protocol,omitempty"`
}

// MacroPool is one yield pool summarized for the result.
type MacroPool struct {
	Symbol string  `json:"symbol"`
	TVLUSD float64 `json:"tvl_usd"`
	APY    float64 `json:"apy"`
}

// MacroProtocolBlock is one protocol's market view.
type MacroProtocolBlock struct {
	Slug     string           `json:"slug"`
	Name     string           `json:"name"`
	Category string           `json:"category"`
	TVLUSD   float64          `json:"tvl_usd"`
	Audit    *auditfeed.Audit `json:"audit,omitempty"`
	TopPools []MacroPool      `json:"top_pools,omitempty"`
}

// MacroResult is the JSON payload stored on SUCCESS.
type MacroResult struct {
	Scope       string               `json:"scope"`
	TotalTVLUSD float64              `json:"total_tvl_usd"`
	Protocols   []MacroProtocolBlock `json:"protocols"`
	GeneratedAt time.Time            `json:"generated_at"`
}

func (r *MacroResult) Validate() error {
	if r.Scope == "" {
		return fmt.Errorf("scope is required")
	}
	if len(r.Protocols) == 0 {
		return fmt.Errorf("no protocol blocks")
	}
	if r.TotalTVLUSD < 0 {
		return fmt.Errorf("total tvl must not be negative")
	}
	for i, p := range r.Protocols {
		if p.Slug == "" {
			return fmt.Errorf("protocol %d has no slug", i)
		}
	}
	return nil
}

// MacroAgent assembles a market overview from precomputed TVL and
// yield data plus the curated audit feed.
type MacroAgent struct {
	protocols ProtocolSource
	yields    YieldSource
	audits    AuditSource
	logger    *slog.Logger
}

func NewMacroAgent(protocols ProtocolSource, yields YieldSource, audits AuditSource, logger *slog.Logger) *MacroAgent {
	return &MacroAgent{
		protocols: protocols,
		yields:    yields,
		audits:    audits,
		logger:    logger,
	}
}

func (a *MacroAgent) Name() string {
	return "macro"
}

func (a *MacroAgent) Analyze(ctx context.Context, payload json.RawMessage) (Result, error) {
	var input MacroInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return nil, WrapError(KindInvalidPayload, "malformed payload", err)
	}

	slug := strings.ToLower(strings.TrimSpace(input.Protocol))
	if slug != "" {
		return a.singleProtocol(ctx, slug)
	}
	return a.allProtocols(ctx)
}

func (a *MacroAgent) singleProtocol(ctx context.Context, slug string) (Result, error) {
	row, err := a.protocols.ProtocolBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, pipeline.ErrArtifactMissing) {
			return nil, NewError(KindInvalidPayload,
				fmt.Sprintf("protocol %q is not tracked", slug))
		}
		return nil, wrapProviderError("failed to read protocol data", err)
	}

	block := a.protocolBlock(ctx, *row)

	return &MacroResult{
		Scope:       slug,
		TotalTVLUSD: row.TVLUSD,
		Protocols:   []MacroProtocolBlock{block},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (a *MacroAgent) allProtocols(ctx context.Context) (Result, error) {
	rows, err := a.protocols.ListProtocols(ctx)
	if err != nil {
		return nil, wrapProviderError("failed to list protocol data", err)
	}

	result := &MacroResult{
		Scope:       AllProtocolsScope,
		Protocols:   make([]MacroProtocolBlock, 0, len(rows)),
		GeneratedAt: time.Now().UTC(),
	}

	for _, row := range rows {
		result.TotalTVLUSD += row.TVLUSD
		result.Protocols = append(result.Protocols, a.protocolBlock(ctx, row))
	}

	return result, nil
}

func (a *MacroAgent) protocolBlock(ctx context.Context, row pipeline.ProtocolTVL) MacroProtocolBlock {
	block := MacroProtocolBlock{
		Slug:     row.Slug,
		Name:     row.Name,
		Category: row.Category,
		TVLUSD:   row.TVLUSD,
	}

	if audit, ok := a.audits.ProtocolAudit(row.Slug); ok {
		block.Audit = audit
	}

	pools, err := a.yields.YieldPools(ctx, row.Slug)
	if err != nil {
		a.logger.Warn("Failed to read yield pools",
			slog.String("protocol", row.Slug),
			slog.Any("error", err),
		)
		return block
	}

	for _, pool := range pools {
		if len(block.TopPools) == maxTopPools {
			break
		}
		block.TopPools = append(block.TopPools, MacroPool{
			Symbol: pool.Symbol,
			TVLUSD: pool.TVLUSD,
			APY:    pool.APY,
		})
	}

	return block
}
