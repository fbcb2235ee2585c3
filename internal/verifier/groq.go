package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/models"
)

const groqURL = "https://api.groq.com/openai/v1/chat/completions"

// GroqVerifier compares text observations through Groq's OpenAI-compatible
// chat API. Screenshots are not supported.
type GroqVerifier struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	logger     zerolog.Logger
}

func NewGroqVerifier(apiKey, model string, logger zerolog.Logger) *GroqVerifier {
	if model == "" {
		model = "llama-3.3-70b-versatile"
	}
	return &GroqVerifier{
		apiKey:     apiKey,
		model:      model,
		endpoint:   groqURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With().Str("verifier", models.VerifierGroq).Logger(),
	}
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponseFormat struct {
	Type string `json:"type"`
}

type groqRequest struct {
	Model          string              `json:"model"`
	Messages       []groqMessage       `json:"messages"`
	Temperature    float64             `json:"temperature"`
	ResponseFormat *groqResponseFormat `json:"response_format,omitempty"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (v *GroqVerifier) Name() string { return models.VerifierGroq }

func (v *GroqVerifier) Judge(ctx context.Context, req Request) (*models.Judgment, error) {
	if req.Current.IsImage() || req.Prior.IsImage() {
		return nil, ErrUnsupported
	}
	if req.Prior == nil || req.Current == nil {
		return nil, fmt.Errorf("groq needs both observations")
	}

	user := fmt.Sprintf("BEFORE text:\n%s\n\nAFTER text:\n%s", truncateText(req.Prior.Text), truncateText(req.Current.Text))
	content, err := v.complete(ctx, buildComparePrompt(req.Target.Name, "text extracts", req.Known), user)
	if err != nil {
		return nil, err
	}

	judgment, structured := ParseJudgment(content)
	v.logger.Info().
		Str("target", req.Target.Name).
		Bool("structured", structured).
		Bool("has_changes", judgment.HasChanges).
		Float64("confidence", judgment.Confidence).
		Msg("🤖 AI analysis: " + judgment.Description)
	return judgment, nil
}

// Catalog lists the postings in a single text observation
func (v *GroqVerifier) Catalog(ctx context.Context, target models.Target, current *models.Snapshot) ([]string, error) {
	if current.IsImage() {
		return nil, ErrUnsupported
	}
	content, err := v.complete(ctx, buildCatalogPrompt(target.Name, "text extract"), truncateText(current.Text))
	if err != nil {
		return nil, err
	}
	return ParseCatalog(content)
}

func (v *GroqVerifier) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := groqRequest{
		Model: v.model,
		Messages: []groqMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    0.1,
		ResponseFormat: &groqResponseFormat{Type: "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal groq request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: groq request failed: %v", models.ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: groq API returned status %d: %s", models.ErrVerifierUnavailable, resp.StatusCode, string(bodyBytes))
	}

	var groqResp groqResponse
	if err := json.Unmarshal(bodyBytes, &groqResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if groqResp.Error != nil {
		return "", fmt.Errorf("API error: %s", groqResp.Error.Message)
	}
	if len(groqResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from groq API")
	}

	return cleanMarkdownJSON(groqResp.Choices[0].Message.Content), nil
}
