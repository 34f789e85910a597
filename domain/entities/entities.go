package entities

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/satriahrh/voicecache/domain"
)

// MaxTextLength is the largest text, in characters, accepted for one synthesis request
const MaxTextLength = 5000

// ArtifactExtension is appended to a cache key to form the artifact filename
const ArtifactExtension = ".mp3"

// VoiceSettings holds the voice parameters sent with a synthesis request
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
	Speed           float64 `json:"speed,omitempty"`
}

// Voice represents a voice known to the synthesis service
type Voice struct {
	ID       string         `json:"voice_id"`
	Name     string         `json:"name,omitempty"`
	Category string         `json:"category,omitempty"`
	Settings *VoiceSettings `json:"settings,omitempty"`
}

// CacheKey addresses an artifact on disk
type CacheKey string

func (k CacheKey) String() string {
	return string(k)
}

// Filename returns the artifact filename for the key
func (k CacheKey) Filename() string {
	return string(k) + ArtifactExtension
}

// Artifact is a persisted synthesis result
type Artifact struct {
	Key      CacheKey `json:"cache_key"`
	Path     string   `json:"path"`
	CacheHit bool     `json:"cache_hit"`
}

// Validate checks that every ratio is finite and lies within [0, 1], and
// that speed is finite and not negative
func (s VoiceSettings) Validate() error {
	ratios := []struct {
		field string
		value float64
	}{
		{"voice_settings.stability", s.Stability},
		{"voice_settings.similarity_boost", s.SimilarityBoost},
		{"voice_settings.style", s.Style},
	}
	for _, r := range ratios {
		if math.IsNaN(r.value) || r.value < 0 || r.value > 1 {
			return &domain.ValidationError{
				Field:  r.field,
				Reason: fmt.Sprintf("must be between 0 and 1, got %g", r.value),
			}
		}
	}

	if math.IsNaN(s.Speed) || math.IsInf(s.Speed, 0) {
		return &domain.ValidationError{
			Field:  "voice_settings.speed",
			Reason: fmt.Sprintf("must be a finite number, got %g", s.Speed),
		}
	}
	if s.Speed < 0 {
		return &domain.ValidationError{
			Field:  "voice_settings.speed",
			Reason: fmt.Sprintf("must not be negative, got %g", s.Speed),
		}
	}
	return nil
}

// ValidateText checks the text bounds without touching anything else
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &domain.ValidationError{Field: "text", Reason: "cannot be empty"}
	}
	if n := utf8.RuneCountInString(text); n > MaxTextLength {
		return &domain.ValidationError{
			Field:  "text",
			Reason: fmt.Sprintf("too long: %d characters (max %d)", n, MaxTextLength),
		}
	}
	return nil
}

// ValidateVoiceID rejects identifiers that cannot be used as a URL path segment
func ValidateVoiceID(voiceID string) error {
	if strings.TrimSpace(voiceID) == "" {
		return &domain.ValidationError{Field: "voice_id", Reason: "is required"}
	}
	if strings.ContainsAny(voiceID, "/?#") {
		return &domain.ValidationError{Field: "voice_id", Reason: "contains reserved characters"}
	}
	return nil
}
