package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultModel is used when the config does not name one.
	DefaultModel = "gpt-4o-mini"

	defaultTimeout = 60 * time.Second
	maxRetries     = 2
	baseBackoff    = 2 * time.Second
)

// ErrAPIKeyNotSet is returned when no API key is configured.
var ErrAPIKeyNotSet = errors.New("insights API key not set")

// Holding is one portfolio position summarized for the prompt.
type Holding struct {
	Symbol       string
	ValueUSD     float64
	PortfolioPct float64
}

// Input is the portfolio context the engine builds its prompt from.
type Input struct {
	Wallet        string
	Network       string
	DataSource    string
	TotalValueUSD float64
	Holdings      []Holding
}

// Engine generates portfolio insight text from an LLM. Failures never
// propagate to the caller as errors worth failing a job over; callers
// use Fallback when generation is unavailable.
type Engine struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

func NewEngine(apiKey, model string, logger *slog.Logger) (*Engine, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	if model == "" {
		model = DefaultModel
	}

	return &Engine{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   model,
		timeout: defaultTimeout,
		logger:  logger,
	}, nil
}

// PortfolioInsights returns generated insight text for the portfolio.
func (e *Engine) PortfolioInsights(ctx context.Context, input Input) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	prompt := buildPrompt(input)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff << uint(attempt-1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: shared.ChatModel(e.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage(prompt),
			},
			Temperature: openai.Float(0.3),
		})
		if err != nil {
			lastErr = err
			e.logger.Warn("Insights generation attempt failed",
				slog.Int("attempt", attempt+1),
				slog.Any("error", err),
			)
			continue
		}

		if len(resp.Choices) == 0 {
			lastErr = errors.New("empty completion response")
			continue
		}

		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("insights generation failed after %d attempts: %w", maxRetries+1, lastErr)
}

// buildPrompt renders the portfolio context into the analyst prompt.
func buildPrompt(input Input) string {
	var b strings.Builder

	b.WriteString("You are Fluxo, an AI-powered DeFi portfolio analyst. ")
	b.WriteString("Analyze this portfolio and provide actionable insights.\n\n")
	fmt.Fprintf(&b, "WALLET: %s\n", input.Wallet)
	fmt.Fprintf(&b, "NETWORK: %s\n", input.Network)
	fmt.Fprintf(&b, "TOTAL VALUE: $%.2f\n", input.TotalValueUSD)
	fmt.Fprintf(&b, "DATA SOURCE: %s\n", input.DataSource)

	if len(input.Holdings) > 0 {
		b.WriteString("\nTop Holdings:\n")
		top := input.Holdings
		if len(top) > 3 {
			top = top[:3]
		}
		for _, h := range top {
			fmt.Fprintf(&b, "  - %s: %.1f%% ($%.0f)\n", h.Symbol, h.PortfolioPct, h.ValueUSD)
		}
	}

	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. Portfolio Health Summary (2-3 sentences)\n")
	b.WriteString("2. Key Risks (top 3, bullet points)\n")
	b.WriteString("3. Opportunities (top 2-3, bullet points)\n")
	b.WriteString("4. Actionable Recommendations (3-4 specific actions)\n")

	return b.String()
}

// Fallback produces a deterministic summary when generation is
// unavailable, so the result still carries an insights field.
func Fallback(input Input) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Portfolio for %s holds %d position(s) worth $%.2f in total.",
		input.Wallet, len(input.Holdings), input.TotalValueUSD)

	if len(input.Holdings) > 0 {
		top := input.Holdings[0]
		fmt.Fprintf(&b, " Largest position: %s at %.1f%% of the portfolio.",
			top.Symbol, top.PortfolioPct)
	}

	b.WriteString(" AI-generated insights are currently unavailable.")

	return b.String()
}
