package api

import "github.com/satriahrh/voicecache/domain/entities"

// SynthesizeRequest represents the request payload for text-to-speech
type SynthesizeRequest struct {
	Text          string                  `json:"text"`
	VoiceSettings *entities.VoiceSettings `json:"voice_settings,omitempty"`
}

// SynthesizeResponse represents the response payload for text-to-speech
type SynthesizeResponse struct {
	CacheKey string `json:"cache_key"`
	CacheHit bool   `json:"cache_hit"`
	Size     int64  `json:"size"`
	AudioURL string `json:"audio_url"`
}

// VoicesResponse represents the voice catalog
type VoicesResponse struct {
	Voices []entities.Voice `json:"voices"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
