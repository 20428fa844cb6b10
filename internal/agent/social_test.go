package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/fluxolabs/fluxo-backend/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSentimentSource struct {
	blocks []pipeline.PlatformSentiment
	err    error
}

func (f *fakeSentimentSource) SentimentByTimeframe(ctx context.Context, timeframe string) ([]pipeline.PlatformSentiment, error) {
	return f.blocks, f.err
}

func TestSocialAgent_Aggregation(t *testing.T) {
	source := &fakeSentimentSource{
		blocks: []pipeline.PlatformSentiment{
			{
				Platform:      "twitter",
				Timeframe:     "24h",
				OverallScore:  0.5,
				TotalPosts:    300,
				PositivePosts: 200,
				NeutralPosts:  60,
				NegativePosts: 40,
			},
			{
				Platform:      "reddit",
				Timeframe:     "24h",
				OverallScore:  -0.1,
				TotalPosts:    100,
				PositivePosts: 30,
				NeutralPosts:  30,
				NegativePosts: 40,
			},
		},
	}

	agent := NewSocialAgent(source, slog.New(slog.DiscardHandler))

	result, err := agent.Analyze(context.Background(), json.RawMessage(`{"timeframe":"24h","focus_tokens":["MNT"]}`))
	require.NoError(t, err)

	social, ok := result.(*SocialResult)
	require.True(t, ok)

	assert.Equal(t, "24h", social.Timeframe)
	assert.Equal(t, []string{"MNT"}, social.FocusTokens)
	assert.Equal(t, 400, social.TotalPostsAnalyzed)

	// (0.5*300 + -0.1*100) / 400 = 0.35
	assert.InDelta(t, 0.35, social.OverallScore, 1e-9)
	assert.Equal(t, "bullish", social.OverallSentiment)

	require.Contains(t, social.ByPlatform, "twitter")
	require.Contains(t, social.ByPlatform, "reddit")
	assert.Equal(t, "bullish", social.ByPlatform["twitter"].OverallSentiment)
	assert.Equal(t, "neutral", social.ByPlatform["reddit"].OverallSentiment)
	assert.Equal(t, 40, social.ByPlatform["reddit"].SentimentDistribution.Negative)

	assert.NoError(t, social.Validate())
}

func TestSocialAgent_Failures(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		source   *fakeSentimentSource
		wantKind FailureKind
	}{
		{
			name:     "malformed payload",
			payload:  `{"timeframe":`,
			source:   &fakeSentimentSource{},
			wantKind: KindInvalidPayload,
		},
		{
			name:     "invalid timeframe",
			payload:  `{"timeframe":"48h"}`,
			source:   &fakeSentimentSource{},
			wantKind: KindInvalidPayload,
		},
		{
			name:     "sentiment data missing",
			payload:  `{"timeframe":"24h"}`,
			source:   &fakeSentimentSource{err: pipeline.ErrArtifactMissing},
			wantKind: KindProviderError,
		},
		{
			name:     "sentiment data stale",
			payload:  `{"timeframe":"24h"}`,
			source:   &fakeSentimentSource{err: pipeline.ErrArtifactStale},
			wantKind: KindProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := NewSocialAgent(tt.source, slog.New(slog.DiscardHandler))

			result, err := agent.Analyze(context.Background(), json.RawMessage(tt.payload))
			require.Error(t, err)
			assert.Nil(t, result)

			var agentErr *Error
			require.ErrorAs(t, err, &agentErr)
			assert.Equal(t, tt.wantKind, agentErr.Kind)
		})
	}
}

func TestSentimentLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{score: 0.5, want: "bullish"},
		{score: 0.21, want: "bullish"},
		{score: 0.2, want: "neutral"},
		{score: 0, want: "neutral"},
		{score: -0.2, want: "neutral"},
		{score: -0.21, want: "bearish"},
		{score: -0.9, want: "bearish"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sentimentLabel(tt.score), "score %v", tt.score)
	}
}

func TestRoundScore(t *testing.T) {
	assert.InDelta(t, 0.333, roundScore(1.0/3.0), 1e-12)
	assert.InDelta(t, -0.667, roundScore(-2.0/3.0), 1e-12)
}
