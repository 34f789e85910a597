package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/satriahrh/voicecache/domain/entities"
	"github.com/satriahrh/voicecache/domain/repositories"
)

// SettingsOrigin tells which tier supplied the effective voice settings
type SettingsOrigin string

const (
	SettingsFromOverride SettingsOrigin = "override"
	SettingsFromVoice    SettingsOrigin = "voice"
	SettingsFromRemote   SettingsOrigin = "remote"
)

var errNoSettingsSource = errors.New("no voice settings supplied and no default settings source configured")

// ResolveVoiceSettings returns the first defined settings in order: the
// explicit override, the voice's stored settings, the remote default.
// Only the last tier performs network I/O.
func ResolveVoiceSettings(
	ctx context.Context,
	override *entities.VoiceSettings,
	voice entities.Voice,
	source repositories.DefaultSettingsSource,
) (entities.VoiceSettings, SettingsOrigin, error) {
	if override != nil {
		return *override, SettingsFromOverride, nil
	}
	if voice.Settings != nil {
		return *voice.Settings, SettingsFromVoice, nil
	}
	if source == nil {
		return entities.VoiceSettings{}, "", errNoSettingsSource
	}

	settings, err := source.DefaultVoiceSettings(ctx)
	if err != nil {
		return entities.VoiceSettings{}, "", fmt.Errorf("failed to fetch default voice settings: %w", err)
	}
	return settings, SettingsFromRemote, nil
}
