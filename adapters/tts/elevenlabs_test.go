package tts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/voicecache/domain"
	"github.com/satriahrh/voicecache/domain/entities"
)

func newTestTTS(t *testing.T, baseURL string) *ElevenLabsTTS {
	t.Helper()
	tts, err := NewElevenLabsTTS(ElevenLabsConfig{APIKey: "test-api-key", APIBaseURL: baseURL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}
	return tts
}

func mustRequest(t *testing.T, text, voiceID string, settings entities.VoiceSettings) *entities.SynthesisRequest {
	t.Helper()
	req, err := entities.NewSynthesisRequest(text, voiceID, settings)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	return req
}

func TestNewElevenLabsTTS(t *testing.T) {
	logger := zaptest.NewLogger(t)

	// Test without API key
	t.Setenv("ELEVEN_LABS_API_KEY", "")
	config, err := NewElevenLabsConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if _, err := NewElevenLabsTTS(config, logger); err == nil {
		t.Error("Expected error when API key is not set")
	}

	// Test with API key
	t.Setenv("ELEVEN_LABS_API_KEY", "test-api-key")
	t.Setenv("ELEVEN_LABS_REQUESTS_PER_MINUTE", "30")
	t.Setenv("ELEVEN_LABS_TIMEOUT", "15s")

	config, err = NewElevenLabsConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	if config.RequestsPerMinute != 30 {
		t.Errorf("Expected 30 requests per minute, got %d", config.RequestsPerMinute)
	}
	if config.Timeout != 15*time.Second {
		t.Errorf("Expected timeout 15s, got %s", config.Timeout)
	}

	tts, err := NewElevenLabsTTS(config, logger)
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	if tts.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", tts.apiKey)
	}
	if tts.apiBaseURL != defaultAPIBaseURL {
		t.Errorf("Expected default base URL '%s', got '%s'", defaultAPIBaseURL, tts.apiBaseURL)
	}
	if tts.modelID != defaultModelID {
		t.Errorf("Expected default model ID '%s', got '%s'", defaultModelID, tts.modelID)
	}
	if tts.Variant() != defaultModelID+"/"+defaultOutputFormat {
		t.Errorf("Unexpected variant '%s'", tts.Variant())
	}
}

func TestNewElevenLabsConfigFromEnv_Malformed(t *testing.T) {
	t.Setenv("ELEVEN_LABS_TIMEOUT", "soon")
	if _, err := NewElevenLabsConfigFromEnv(); err == nil {
		t.Error("Expected error for malformed timeout")
	}
}

func TestValidateElevenLabsConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ElevenLabsConfig
		wantErr bool
	}{
		{"valid", ElevenLabsConfig{APIKey: "k"}, false},
		{"missing key", ElevenLabsConfig{}, true},
		{"pcm format", ElevenLabsConfig{APIKey: "k", OutputFormat: "pcm_24000"}, true},
		{"mp3 format", ElevenLabsConfig{APIKey: "k", OutputFormat: "mp3_22050_32"}, false},
		{"negative rate", ElevenLabsConfig{APIKey: "k", RequestsPerMinute: -1}, true},
		{"negative timeout", ElevenLabsConfig{APIKey: "k", Timeout: -time.Second}, true},
		{"bad base url", ElevenLabsConfig{APIKey: "k", APIBaseURL: "not a url"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateElevenLabsConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateElevenLabsConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestElevenLabsTTS_Synthesize(t *testing.T) {
	var received ElevenLabsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/text-to-speech/voice-123" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != defaultOutputFormat {
			t.Errorf("Unexpected output format %s", r.URL.Query().Get("output_format"))
		}
		if r.Header.Get("xi-api-key") != "test-api-key" {
			t.Errorf("Unexpected API key header %s", r.Header.Get("xi-api-key"))
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-fake-mp3"))
	}))
	defer server.Close()

	tts := newTestTTS(t, server.URL)
	settings := entities.VoiceSettings{Stability: 0.3, SimilarityBoost: 0.8, UseSpeakerBoost: true}

	body, err := tts.Synthesize(context.Background(), mustRequest(t, "Halo dunia", "voice-123", settings))
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	defer body.Close()

	audio, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if string(audio) != "ID3-fake-mp3" {
		t.Errorf("Unexpected audio %q", audio)
	}

	if received.Text != "Halo dunia" {
		t.Errorf("Expected text 'Halo dunia', got '%s'", received.Text)
	}
	if received.ModelID != defaultModelID {
		t.Errorf("Expected model '%s', got '%s'", defaultModelID, received.ModelID)
	}
	if received.VoiceSettings != settings {
		t.Errorf("Expected settings %+v, got %+v", settings, received.VoiceSettings)
	}
}

func TestElevenLabsTTS_Synthesize_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"status":"invalid_api_key"}}`))
	}))
	defer server.Close()

	tts := newTestTTS(t, server.URL)
	_, err := tts.Synthesize(context.Background(), mustRequest(t, "Hello", "voice-1", entities.VoiceSettings{}))

	var synthErr *domain.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("Expected SynthesisError, got %v", err)
	}
	if synthErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", synthErr.StatusCode)
	}
	if string(synthErr.Body) != `{"detail":{"status":"invalid_api_key"}}` {
		t.Errorf("Unexpected body %s", synthErr.Body)
	}
}

func TestElevenLabsTTS_Synthesize_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Request should not reach the server")
	}))
	defer server.Close()

	tts := newTestTTS(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tts.Synthesize(ctx, mustRequest(t, "Hello", "voice-1", entities.VoiceSettings{})); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestElevenLabsTTS_DefaultVoiceSettings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices/settings/default" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"stability":0.5,"similarity_boost":0.75,"style":0,"use_speaker_boost":true}`))
	}))
	defer server.Close()

	settings, err := newTestTTS(t, server.URL).DefaultVoiceSettings(context.Background())
	if err != nil {
		t.Fatalf("DefaultVoiceSettings failed: %v", err)
	}

	want := entities.VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75, UseSpeakerBoost: true}
	if settings != want {
		t.Errorf("Expected %+v, got %+v", want, settings)
	}
}

func TestElevenLabsTTS_ListVoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"voices":[
			{"voice_id":"21m00Tcm4TlvDq8ikWAM","name":"Rachel","category":"premade"},
			{"voice_id":"abc","name":"Custom","settings":{"stability":0.2,"similarity_boost":0.9}}
		]}`))
	}))
	defer server.Close()

	voices, err := newTestTTS(t, server.URL).ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices failed: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("Expected 2 voices, got %d", len(voices))
	}
	if voices[0].Name != "Rachel" || voices[0].Settings != nil {
		t.Errorf("Unexpected first voice %+v", voices[0])
	}
	if voices[1].Settings == nil || voices[1].Settings.Stability != 0.2 {
		t.Errorf("Expected stored settings on second voice, got %+v", voices[1].Settings)
	}
}

// Integration test - only runs if ELEVEN_LABS_API_KEY is set with real API key
func TestElevenLabsTTS_Synthesize_Integration(t *testing.T) {
	apiKey := os.Getenv("ELEVEN_LABS_API_KEY")
	if apiKey == "" || apiKey == "test-api-key" {
		t.Skip("Skipping integration test - set ELEVEN_LABS_API_KEY environment variable with real API key")
	}

	config, err := NewElevenLabsConfigFromEnv()
	if err != nil {
		t.Fatalf("Failed to read config: %v", err)
	}
	tts, err := NewElevenLabsTTS(config, zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create ElevenLabsTTS: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings, err := tts.DefaultVoiceSettings(ctx)
	if err != nil {
		t.Fatalf("Failed to fetch default settings: %v", err)
	}

	body, err := tts.Synthesize(ctx, mustRequest(t, "Halo, ini adalah tes integrasi.", "21m00Tcm4TlvDq8ikWAM", settings))
	if err != nil {
		t.Fatalf("Failed to convert text to speech: %v", err)
	}
	defer body.Close()

	n, err := io.Copy(io.Discard, body)
	if err != nil {
		t.Fatalf("Failed to read audio: %v", err)
	}
	if n == 0 {
		t.Error("No audio data received")
	}
	t.Logf("Integration test completed: received %d bytes", n)
}
