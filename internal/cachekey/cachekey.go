// Package cachekey derives stable artifact identifiers from synthesis requests.
package cachekey

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/satriahrh/voicecache/domain/entities"
)

// Scope selects which request fields take part in the key
type Scope string

const (
	// ScopeRequest keys on text, voice, effective settings and variant
	ScopeRequest Scope = "request"
	// ScopeText keys on the text alone. Different voices or settings for the
	// same text share one artifact.
	ScopeText Scope = "text"
)

// namespace is the v5 namespace for every key this package produces
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://api.elevenlabs.io/v1/text-to-speech"))

// ParseScope validates a scope name
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeRequest, ScopeText:
		return Scope(s), nil
	case "":
		return ScopeRequest, nil
	default:
		return "", fmt.Errorf("unknown cache key scope %q (want %q or %q)", s, ScopeRequest, ScopeText)
	}
}

// Deriver maps requests to cache keys
type Deriver struct {
	scope   Scope
	variant string
}

// NewDeriver creates a deriver. variant names output-affecting settings that
// live outside the request, such as model and output format.
func NewDeriver(scope Scope, variant string) *Deriver {
	if scope == "" {
		scope = ScopeRequest
	}
	return &Deriver{scope: scope, variant: variant}
}

// Scope returns the configured scope
func (d *Deriver) Scope() Scope {
	return d.scope
}

// canonicalRequest fixes the field order of the hashed document
type canonicalRequest struct {
	Text     string                  `json:"text"`
	VoiceID  string                  `json:"voice_id,omitempty"`
	Settings *entities.VoiceSettings `json:"voice_settings,omitempty"`
	Variant  string                  `json:"variant,omitempty"`
}

// Derive returns a name-based UUID for the request. The same logical input
// gives the same key in every process.
func (d *Deriver) Derive(req *entities.SynthesisRequest) (entities.CacheKey, error) {
	doc := canonicalRequest{Text: req.Text()}
	if d.scope == ScopeRequest {
		settings := req.Settings()
		doc.VoiceID = req.VoiceID()
		doc.Settings = &settings
		doc.Variant = d.variant
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key document: %w", err)
	}
	return entities.CacheKey(uuid.NewSHA1(namespace, payload).String()), nil
}
