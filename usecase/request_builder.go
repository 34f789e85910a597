package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/voicecache/domain/entities"
	"github.com/satriahrh/voicecache/domain/repositories"
)

// RequestBuilder validates input and resolves effective voice settings
type RequestBuilder struct {
	defaults repositories.DefaultSettingsSource
	logger   *zap.Logger
}

// NewRequestBuilder creates a new request builder. defaults may be nil when
// every caller supplies settings.
func NewRequestBuilder(defaults repositories.DefaultSettingsSource, logger *zap.Logger) *RequestBuilder {
	return &RequestBuilder{
		defaults: defaults,
		logger:   logger,
	}
}

// Build validates text, voice and override before any I/O, then resolves
// the effective settings
func (b *RequestBuilder) Build(
	ctx context.Context,
	text string,
	voice entities.Voice,
	override *entities.VoiceSettings,
) (*entities.SynthesisRequest, error) {
	if err := entities.ValidateText(text); err != nil {
		return nil, err
	}
	if err := entities.ValidateVoiceID(voice.ID); err != nil {
		return nil, err
	}
	if override != nil {
		if err := override.Validate(); err != nil {
			return nil, err
		}
	}

	settings, origin, err := ResolveVoiceSettings(ctx, override, voice, b.defaults)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("Resolved voice settings",
		zap.String("voiceID", voice.ID),
		zap.String("origin", string(origin)))

	return entities.NewSynthesisRequest(text, voice.ID, settings)
}
