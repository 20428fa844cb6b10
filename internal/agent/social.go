package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fluxolabs/fluxo-backend/internal/pipeline"
)

var validTimeframes = map[string]bool{
	"1h":  true,
	"24h": true,
	"7d":  true,
}

// SentimentSource reads precomputed per-platform sentiment blocks.
type SentimentSource interface {
	SentimentByTimeframe(ctx context.Context, timeframe string) ([]pipeline.PlatformSentiment, error)
}

// SocialInput is the validated payload of a social analysis job.
type SocialInput struct {
	Timeframe   string   `json:"timeframe"`
	FocusTokens []string `json:"focus_tokens,omitempty"`
}

// SentimentDistribution counts posts per sentiment bucket.
type SentimentDistribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// PlatformSentimentBlock is one platform's aggregated sentiment.
type PlatformSentimentBlock struct {
	OverallScore          float64               `json:"overall_score"`
	OverallSentiment      string                `json:"overall_sentiment"`
	TotalPosts            int                   `json:"total_posts"`
	SentimentDistribution SentimentDistribution `json:"sentiment_distribution"`
}

// SocialResult is the JSON payload stored on SUCCESS.
type SocialResult struct {
	Timeframe          string                            `json:"timeframe"`
	FocusTokens        []string                          `json:"focus_tokens,omitempty"`
	ByPlatform         map[string]PlatformSentimentBlock `json:"by_platform"`
	OverallScore       float64                           `json:"overall_score"`
	OverallSentiment   string                            `json:"overall_sentiment"`
	TotalPostsAnalyzed int                               `json:"total_posts_analyzed"`
	GeneratedAt        time.Time                         `json:"generated_at"`
}

func (r *SocialResult) Validate() error {
	if !validTimeframes[r.Timeframe] {
		return fmt.Errorf("invalid timeframe %q", r.Timeframe)
	}
	if len(r.ByPlatform) == 0 {
		return fmt.Errorf("no platform blocks")
	}
	if !validSentimentLabel(r.OverallSentiment) {
		return fmt.Errorf("invalid sentiment label %q", r.OverallSentiment)
	}
	for platform, block := range r.ByPlatform {
		if !validSentimentLabel(block.OverallSentiment) {
			return fmt.Errorf("invalid sentiment label %q for platform %s",
				block.OverallSentiment, platform)
		}
	}
	return nil
}

func validSentimentLabel(label string) bool {
	switch label {
	case "bullish", "neutral", "bearish":
		return true
	}
	return false
}

// SocialAgent aggregates precomputed per-platform sentiment into a
// cross-platform view weighted by post volume.
type SocialAgent struct {
	sentiment SentimentSource
	logger    *slog.Logger
}

func NewSocialAgent(sentiment SentimentSource, logger *slog.Logger) *SocialAgent {
	return &SocialAgent{
		sentiment: sentiment,
		logger:    logger,
	}
}

func (a *SocialAgent) Name() string {
	return "social"
}

func (a *SocialAgent) Analyze(ctx context.Context, payload json.RawMessage) (Result, error) {
	var input SocialInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return nil, WrapError(KindInvalidPayload, "malformed payload", err)
	}

	if !validTimeframes[input.Timeframe] {
		return nil, NewError(KindInvalidPayload,
			fmt.Sprintf("invalid timeframe %q, expected one of 1h, 24h, 7d", input.Timeframe))
	}

	blocks, err := a.sentiment.SentimentByTimeframe(ctx, input.Timeframe)
	if err != nil {
		return nil, wrapProviderError("failed to read platform sentiment", err)
	}

	result := &SocialResult{
		Timeframe:   input.Timeframe,
		FocusTokens: input.FocusTokens,
		ByPlatform:  make(map[string]PlatformSentimentBlock, len(blocks)),
		GeneratedAt: time.Now().UTC(),
	}

	var weightedSum float64
	for _, b := range blocks {
		result.ByPlatform[b.Platform] = PlatformSentimentBlock{
			OverallScore:     b.OverallScore,
			OverallSentiment: sentimentLabel(b.OverallScore),
			TotalPosts:       b.TotalPosts,
			SentimentDistribution: SentimentDistribution{
				Positive: b.PositivePosts,
				Neutral:  b.NeutralPosts,
				Negative: b.NegativePosts,
			},
		}
		result.TotalPostsAnalyzed += b.TotalPosts
		weightedSum += b.OverallScore * float64(b.TotalPosts)
	}

	if result.TotalPostsAnalyzed > 0 {
		result.OverallScore = roundScore(weightedSum / float64(result.TotalPostsAnalyzed))
	}
	result.OverallSentiment = sentimentLabel(result.OverallScore)

	return result, nil
}

// sentimentLabel maps a score in [-1, 1] onto a market mood label.
func sentimentLabel(score float64) string {
	switch {
	case score > 0.2:
		return "bullish"
	case score < -0.2:
		return "bearish"
	default:
		return "neutral"
	}
}

func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}
