// Package briefing turns a completed fusion run into a short plain-text
// situation briefing for city operators, using OpenAI's chat API. The
// briefing is strictly additive: every number in the prompt comes from the
// computed run, and the pipeline works identically when no API key is
// configured.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/rmehta/punepulse/internal/fuse"
)

const systemPrompt = "You are an operations analyst for a municipal monitoring system. " +
	"Summarize the risk table you are given in at most 120 words of plain prose. " +
	"Lead with the areas carrying cross-domain alerts, then the overall city health score. " +
	"Do not invent numbers that are not in the table."

// Generator produces briefings against the OpenAI chat API.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator reads OPENAI_API_KEY via the client's default environment
// lookup. Callers should treat the error as "briefings disabled" rather
// than fatal.
func NewGenerator(apiKey string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Generate renders the run as a prompt and returns the model's briefing.
func (g *Generator) Generate(ctx context.Context, result *fuse.Result) (string, error) {
	prompt := BuildPrompt(result)

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("briefing generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion returned")
	}

	slog.Info("generated briefing", "chars", len(text))
	return text, nil
}

// BuildPrompt serializes the run into the user message. Exported so tests
// can assert on the prompt without a live API.
func BuildPrompt(result *fuse.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "City health score: %.1f\n", result.HealthScore)
	b.WriteString("Risk table (highest final risk first):\n")
	for _, row := range result.Rows {
		fmt.Fprintf(&b, "- %s: waste %.2f, water %.2f, disease %.2f, final %.2f, alert: %s\n",
			row.Area, row.WasteRiskScore, row.WaterRiskScore, row.DiseaseRiskScore, row.FinalRiskScore, row.CrossDomainAlert)
	}
	if len(result.DiseaseAlerts) > 0 {
		b.WriteString("Active disease alerts:\n")
		for _, a := range result.DiseaseAlerts {
			if a.IsAlert {
				fmt.Fprintf(&b, "- %s / %s: %d current cases, growth %.2f, predicted %.2f next week\n",
					a.Area, a.Disease, a.CurrentCases, a.GrowthRate, a.PredictedNextWeek)
			}
		}
	}
	return b.String()
}
