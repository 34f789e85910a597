package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/satriahrh/voicecache/domain"
	"github.com/satriahrh/voicecache/domain/entities"
	"github.com/satriahrh/voicecache/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultModelID      = "eleven_multilingual_v2" // Default model ID
	defaultOutputFormat = "mp3_44100_128"          // Artifacts are stored as .mp3
	defaultTimeout      = 60 * time.Second
	maxErrorBodySize    = 64 * 1024
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - OutputFormat: An mp3 output format (default: "mp3_44100_128")
// - RequestsPerMinute: Client-side pacing of synthesis calls (default: unlimited)
// - Timeout: Upper bound for a whole request including the body (default: 60s)
type ElevenLabsConfig struct {
	APIKey            string        `env:"API_KEY"`
	APIBaseURL        string        `env:"API_BASE_URL"`
	ModelID           string        `env:"MODEL_ID"`
	OutputFormat      string        `env:"OUTPUT_FORMAT"`
	RequestsPerMinute int           `env:"REQUESTS_PER_MINUTE"`
	Timeout           time.Duration `env:"TIMEOUT"`
}

// ElevenLabsTTS implements the synthesis, default settings and voice
// catalog repositories on top of the Eleven Labs REST API
type ElevenLabsTTS struct {
	apiKey       string
	apiBaseURL   string
	modelID      string
	outputFormat string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// Ensure ElevenLabsTTS implements the repository interfaces
var (
	_ repositories.SpeechSynthesizer     = (*ElevenLabsTTS)(nil)
	_ repositories.DefaultSettingsSource = (*ElevenLabsTTS)(nil)
	_ repositories.VoiceCatalog          = (*ElevenLabsTTS)(nil)
)

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id,omitempty"`
	VoiceSettings entities.VoiceSettings `json:"voice_settings"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.OutputFormat != "" && !strings.HasPrefix(config.OutputFormat, "mp3") {
		return fmt.Errorf("output format must be an mp3 format, got %q", config.OutputFormat)
	}

	if config.RequestsPerMinute < 0 {
		return fmt.Errorf("requests per minute must not be negative, got %d", config.RequestsPerMinute)
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", config.Timeout)
	}

	if config.APIBaseURL != "" {
		if _, err := url.ParseRequestURI(config.APIBaseURL); err != nil {
			return fmt.Errorf("invalid API base URL: %w", err)
		}
	}

	return nil
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	// Validate required configuration
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	// Apply defaults where needed
	apiBaseURL := strings.TrimRight(config.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
		logger.Info("Using default model ID", zap.String("modelID", modelID))
	}

	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
		logger.Info("Using default output format", zap.String("outputFormat", outputFormat))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
		logger.Info("Pacing synthesis requests", zap.Int("requestsPerMinute", config.RequestsPerMinute))
	}

	return &ElevenLabsTTS{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		modelID:      modelID,
		outputFormat: outputFormat,
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      limiter,
		logger:       logger,
	}, nil
}

// Variant identifies the output-affecting settings that are not part of a
// request, so cache keys change when the model or format changes
func (e *ElevenLabsTTS) Variant() string {
	return e.modelID + "/" + e.outputFormat
}

// Synthesize converts text to speech using Eleven Labs API. The response body
// is returned unread; the caller owns it.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, req *entities.SynthesisRequest) (io.ReadCloser, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	e.logger.Info("Converting text to speech",
		zap.Int("textLength", len(req.Text())),
		zap.String("voiceID", req.VoiceID()),
		zap.String("modelID", e.modelID))

	requestBody, err := json.Marshal(ElevenLabsRequest{
		Text:          req.Text(),
		ModelID:       e.modelID,
		VoiceSettings: req.Settings(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		e.apiBaseURL, url.PathEscape(req.VoiceID()), url.QueryEscape(e.outputFormat))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	e.logger.Debug("Sending request to Eleven Labs API", zap.String("url", endpoint))

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		e.logger.Error("Eleven Labs API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		return nil, &domain.SynthesisError{StatusCode: resp.StatusCode, Body: errorBody}
	}

	e.logger.Info("Successfully received response from Eleven Labs API",
		zap.String("contentType", resp.Header.Get("Content-Type")),
		zap.String("contentLength", resp.Header.Get("Content-Length")))

	return resp.Body, nil
}

// DefaultVoiceSettings retrieves the account-wide default voice settings
func (e *ElevenLabsTTS) DefaultVoiceSettings(ctx context.Context) (entities.VoiceSettings, error) {
	var settings entities.VoiceSettings
	if err := e.getJSON(ctx, "/voices/settings/default", &settings); err != nil {
		return entities.VoiceSettings{}, err
	}

	e.logger.Info("Retrieved default voice settings",
		zap.Float64("stability", settings.Stability),
		zap.Float64("similarityBoost", settings.SimilarityBoost))
	return settings, nil
}

// ListVoices retrieves available voices from Eleven Labs API
func (e *ElevenLabsTTS) ListVoices(ctx context.Context) ([]entities.Voice, error) {
	var voicesResponse struct {
		Voices []entities.Voice `json:"voices"`
	}
	if err := e.getJSON(ctx, "/voices", &voicesResponse); err != nil {
		return nil, err
	}

	e.logger.Info("Retrieved available voices", zap.Int("count", len(voicesResponse.Voices)))
	return voicesResponse.Voices, nil
}

func (e *ElevenLabsTTS) getJSON(ctx context.Context, path string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiBaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return &domain.SynthesisError{StatusCode: resp.StatusCode, Body: errorBody}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// NewElevenLabsConfigFromEnv reads ELEVEN_LABS_* variables into an ElevenLabsConfig
func NewElevenLabsConfigFromEnv() (ElevenLabsConfig, error) {
	var config ElevenLabsConfig
	if err := env.ParseWithOptions(&config, env.Options{Prefix: "ELEVEN_LABS_"}); err != nil {
		return ElevenLabsConfig{}, fmt.Errorf("failed to parse eleven labs environment: %w", err)
	}
	return config, nil
}
