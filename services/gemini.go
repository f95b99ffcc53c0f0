package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"google.golang.org/genai"
)

// GeminiService handles all Gemini AI operations: resume profile extraction
// and filling university contact gaps the HTML pass could not resolve.
type GeminiService struct {
	genaiClient *genai.Client
	model       string
	tokensUsed  atomic.Int64
}

func NewGeminiService(apiKey, model string) *GeminiService {
	if apiKey == "" {
		slog.Warn("Gemini API key not configured, AI features disabled")
		return &GeminiService{model: model}
	}

	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		slog.Error("Failed to create genai client", "error", err)
		return &GeminiService{model: model}
	}

	return &GeminiService{
		genaiClient: genaiClient,
		model:       model,
	}
}

// Available reports whether the client was configured with an API key.
func (g *GeminiService) Available() bool {
	return g.genaiClient != nil
}

// TokensUsed returns the total Gemini tokens consumed since startup.
func (g *GeminiService) TokensUsed() int64 {
	return g.tokensUsed.Load()
}

func (g *GeminiService) generate(ctx context.Context, systemInstruction, prompt string) (*genai.GenerateContentResponse, error) {
	if g.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	result, err := g.genaiClient.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if result.UsageMetadata != nil {
		g.tokensUsed.Add(int64(result.UsageMetadata.TotalTokenCount))
	}
	return result, nil
}

// GenerateText sends a single prompt with a system instruction and returns
// the raw model text.
func (g *GeminiService) GenerateText(ctx context.Context, systemInstruction, prompt string) (string, error) {
	result, err := g.generate(ctx, systemInstruction, prompt)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

// GenerateJSON sends a prompt expecting a JSON reply and decodes it into out,
// stripping any markdown fencing the model wraps around the payload. Returns
// the tokens the call consumed.
func (g *GeminiService) GenerateJSON(ctx context.Context, systemInstruction, prompt string, out interface{}) (int64, error) {
	result, err := g.generate(ctx, systemInstruction, prompt)
	if err != nil {
		return 0, err
	}

	var tokens int64
	if result.UsageMetadata != nil {
		tokens = int64(result.UsageMetadata.TotalTokenCount)
	}

	clean := CleanJSON(result.Text())
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return tokens, fmt.Errorf("failed to decode model response: %w", err)
	}

	return tokens, nil
}

// CleanJSON strips markdown code fences that models often wrap around
// JSON output.
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")

	clean = strings.TrimSuffix(clean, "```")

	return strings.TrimSpace(clean)
}
