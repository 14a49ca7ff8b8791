package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"linguanest/internal/domain/story"
)

const (
	msgMissingKey = "API_KEY environment variable is not set. Please configure it to use the story generation feature."
	msgBadKey     = "There seems to be an issue with the API key configuration. Please check and ensure it is correctly set up."
	msgBadJSON    = "Failed to parse story data from the AI. The AI might have returned an unexpected response format or non-JSON text. Please try again."
	msgMisaligned = "Received misaligned or improperly formatted paragraph data from the AI."
)

// GeminiConfig holds the settings for the hosted text model. Values are read from the
// environment first and may be overridden by the application config.
type GeminiConfig struct {
	APIKey            string        `env:"GEMINI_API_KEY"`
	Endpoint          string        `env:"GEMINI_ENDPOINT" envDefault:"https://generativelanguage.googleapis.com/v1beta/models"`
	Model             string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	RequestsPerMinute int           `env:"GEMINI_REQUESTS_PER_MINUTE" envDefault:"10"`
	Timeout           time.Duration `env:"GEMINI_TIMEOUT" envDefault:"60s"`
}

// LoadGeminiConfig parses GeminiConfig from the environment. API_KEY is accepted as a
// fallback for GEMINI_API_KEY.
func LoadGeminiConfig() (GeminiConfig, error) {
	cfg, err := env.ParseAs[GeminiConfig]()
	if err != nil {
		return GeminiConfig{}, fmt.Errorf("failed to parse gemini environment: %w", err)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = strings.TrimSpace(envAPIKey())
	}
	return cfg, nil
}

func envAPIKey() string {
	var fallback struct {
		Key string `env:"API_KEY"`
	}
	if err := env.Parse(&fallback); err != nil {
		return ""
	}
	return fallback.Key
}

// Gemini generates stories with the Gemini generateContent REST endpoint.
type Gemini struct {
	cfg        GeminiConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGemini creates a Gemini story generator. A missing API key is not an error here;
// it is reported as a configuration issue on the first Generate call.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Gemini{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature"`
		TopP             float64 `json:"topP"`
		TopK             int     `json:"topK"`
		ResponseMimeType string  `json:"responseMimeType"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate asks the model for a story and validates its alignment.
func (g *Gemini) Generate(ctx context.Context, req Request) (*story.Content, error) {
	start := time.Now()
	content, err := g.generate(ctx, req)
	metricLatency.Observe(float64(time.Since(start).Milliseconds()))

	status := "ok"
	if err != nil {
		status = errorStatus(err)
	}
	metricRequests.WithLabelValues("gemini", status).Inc()

	return content, err
}

func (g *Gemini) generate(ctx context.Context, req Request) (*story.Content, error) {
	if g.cfg.APIKey == "" {
		return nil, configurationError(msgMissingKey, nil)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, transientError("Story request was cancelled before it could be sent.", err)
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: buildPrompt(req)}}}},
	}
	payload.GenerationConfig.Temperature = 0.7
	payload.GenerationConfig.TopP = 0.9
	payload.GenerationConfig.TopK = 40
	payload.GenerationConfig.ResponseMimeType = "application/json"

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, transientError("failed to encode story request", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s",
		strings.TrimSuffix(g.cfg.Endpoint, "/"), g.cfg.Model, url.QueryEscape(g.cfg.APIKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, transientError("failed to build story request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	logrus.WithFields(logrus.Fields{
		"model":    g.cfg.Model,
		"topic":    req.Topic,
		"language": req.Language,
		"level":    req.Level,
	}).Debug("Requesting story from Gemini")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, transientError(fmt.Sprintf("Failed to reach the story service: %v", err), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transientError("failed to read story response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var envelope geminiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, malformedError(msgBadJSON, err)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return nil, malformedError("The AI returned an empty response. Please try again.", nil)
	}

	return parseStory(envelope.Candidates[0].Content.Parts[0].Text)
}

func classifyStatus(code int, body []byte) error {
	lower := strings.ToLower(string(body))
	apiErr := fmt.Errorf("story service returned %d: %s", code, strings.TrimSpace(string(body)))

	if code == http.StatusUnauthorized || code == http.StatusForbidden ||
		(code == http.StatusBadRequest && (strings.Contains(lower, "api key") || strings.Contains(lower, "api_key"))) {
		return configurationError(msgBadKey, apiErr)
	}

	return transientError(apiErr.Error(), nil)
}

var fenceRe = regexp.MustCompile("(?s)^```(\\w*)?\\s*\\n?(.*?)\\n?\\s*```$")

// stripFences removes a surrounding markdown code fence, if the model added one.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); m != nil && m[2] != "" {
		return strings.TrimSpace(m[2])
	}
	return text
}

func parseStory(text string) (*story.Content, error) {
	var content story.Content
	if err := json.Unmarshal([]byte(stripFences(text)), &content); err != nil {
		return nil, malformedError(msgBadJSON, err)
	}

	if err := content.Validate(); err != nil {
		logrus.WithError(err).Warn("Discarding misaligned story")
		return nil, malformedError(msgMisaligned, err)
	}

	return &content, nil
}

func errorStatus(err error) string {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind.String()
	}
	return "error"
}

func buildPrompt(req Request) string {
	lang := req.Language.FullName()

	return fmt.Sprintf(`You are a language learning assistant. Generate a story about "%s".
The story should be suitable for a %s language learner.
Provide the story in two languages: English and %s.
The story should be divided into natural paragraphs. Each paragraph should contain multiple sentences. Aim for 2-4 paragraphs in total.
Each sentence should be relatively short and clear for the specified language level.

The response MUST be a JSON object with the exact following structure:
{
  "englishParagraphs": [
    ["Paragraph 1, Sentence 1 in English.", "Paragraph 1, Sentence 2 in English.", ...],
    ["Paragraph 2, Sentence 1 in English.", "Paragraph 2, Sentence 2 in English.", ...]
  ],
  "targetParagraphs": [
    ["Paragraph 1, Sentence 1 in %[3]s.", "Paragraph 1, Sentence 2 in %[3]s.", ...],
    ["Paragraph 2, Sentence 1 in %[3]s.", "Paragraph 2, Sentence 2 in %[3]s.", ...]
  ]
}

Ensure that:
1.  The "englishParagraphs" and "targetParagraphs" arrays have the same number of paragraphs.
2.  Each corresponding paragraph (e.g., englishParagraphs[0] and targetParagraphs[0]) has the same number of sentences.
3.  Each sentence in an English paragraph directly corresponds to the sentence at the same index in the corresponding %[3]s paragraph.
4.  There are between 3 to 7 sentences per paragraph.
5.  The total story should contain approximately 8-15 sentences in total across all paragraphs.

Do not include any introductory or concluding phrases like 'Here is the story:' or any text outside the JSON object. Output only the raw JSON.`,
		req.Topic, req.Level, lang)
}
