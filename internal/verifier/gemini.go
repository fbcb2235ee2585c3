package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"go-jobwatch/internal/models"
)

// generator is the slice of *genai.GenerativeModel the verifier needs
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiVerifier asks a Gemini model to compare two screenshots or two texts
type GeminiVerifier struct {
	client *genai.Client
	model  generator
	logger zerolog.Logger
}

// NewGeminiVerifier creates a Gemini-backed verifier
func NewGeminiVerifier(ctx context.Context, apiKey, modelName string, logger zerolog.Logger) (*GeminiVerifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1) // Low temperature for consistent output
	model.ResponseMIMEType = "application/json"

	return &GeminiVerifier{
		client: client,
		model:  model,
		logger: logger.With().Str("verifier", models.VerifierGemini).Logger(),
	}, nil
}

func (v *GeminiVerifier) Name() string { return models.VerifierGemini }

func (v *GeminiVerifier) Judge(ctx context.Context, req Request) (*models.Judgment, error) {
	if req.Prior == nil || req.Current == nil {
		return nil, fmt.Errorf("gemini needs both observations")
	}

	var parts []genai.Part
	if req.Current.IsImage() {
		if len(req.Prior.Image) == 0 || len(req.Current.Image) == 0 {
			return nil, fmt.Errorf("gemini needs both screenshots")
		}
		parts = []genai.Part{
			genai.Text(buildComparePrompt(req.Target.Name, "screenshots", req.Known)),
			genai.Text("BEFORE screenshot:"),
			genai.ImageData("png", req.Prior.Image),
			genai.Text("AFTER screenshot:"),
			genai.ImageData("png", req.Current.Image),
		}
	} else {
		parts = []genai.Part{
			genai.Text(buildComparePrompt(req.Target.Name, "text extracts", req.Known)),
			genai.Text("BEFORE text:\n" + truncateText(req.Prior.Text)),
			genai.Text("AFTER text:\n" + truncateText(req.Current.Text)),
		}
	}

	text, err := v.generate(ctx, parts)
	if err != nil {
		return nil, err
	}

	judgment, structured := ParseJudgment(text)
	v.logger.Info().
		Str("target", req.Target.Name).
		Bool("structured", structured).
		Bool("has_changes", judgment.HasChanges).
		Float64("confidence", judgment.Confidence).
		Msg("🤖 AI analysis: " + judgment.Description)
	return judgment, nil
}

// Catalog lists the postings visible in one observation, used at baseline
func (v *GeminiVerifier) Catalog(ctx context.Context, target models.Target, current *models.Snapshot) ([]string, error) {
	if current == nil {
		return nil, fmt.Errorf("nothing to catalog")
	}

	var parts []genai.Part
	if current.IsImage() {
		parts = []genai.Part{
			genai.Text(buildCatalogPrompt(target.Name, "screenshot")),
			genai.ImageData("png", current.Image),
		}
	} else {
		parts = []genai.Part{
			genai.Text(buildCatalogPrompt(target.Name, "text extract")),
			genai.Text(truncateText(current.Text)),
		}
	}

	text, err := v.generate(ctx, parts)
	if err != nil {
		return nil, err
	}
	items, err := ParseCatalog(text)
	if err != nil {
		return nil, err
	}
	v.logger.Info().Str("target", target.Name).Int("items", len(items)).Msg("🔍 Baseline catalog")
	return items, nil
}

func (v *GeminiVerifier) generate(ctx context.Context, parts []genai.Part) (string, error) {
	resp, err := v.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", models.ErrVerifierUnavailable, err)
	}
	return extractTextFromResponse(resp)
}

func (v *GeminiVerifier) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return cleanMarkdownJSON(strings.Join(parts, "")), nil
}
