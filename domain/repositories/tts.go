package repositories

import (
	"context"
	"io"

	"github.com/satriahrh/voicecache/domain/entities"
)

// SpeechSynthesizer performs the remote synthesis call.
// The returned stream is single-pass; the caller must close it.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req *entities.SynthesisRequest) (io.ReadCloser, error)
}

// DefaultSettingsSource provides the service-wide default voice settings
type DefaultSettingsSource interface {
	DefaultVoiceSettings(ctx context.Context) (entities.VoiceSettings, error)
}

// VoiceCatalog lists voices available to the account
type VoiceCatalog interface {
	ListVoices(ctx context.Context) ([]entities.Voice, error)
}
