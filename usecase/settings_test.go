package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/satriahrh/voicecache/domain/entities"
)

// fakeSettingsSource serves remote default settings and counts fetches
type fakeSettingsSource struct {
	settings entities.VoiceSettings
	err      error
	calls    int
}

func (f *fakeSettingsSource) DefaultVoiceSettings(ctx context.Context) (entities.VoiceSettings, error) {
	f.calls++
	return f.settings, f.err
}

func TestResolveVoiceSettings_Override(t *testing.T) {
	override := &entities.VoiceSettings{Stability: 0.1, SimilarityBoost: 0.2}
	voice := entities.Voice{ID: "v", Settings: &entities.VoiceSettings{Stability: 0.9}}
	source := &fakeSettingsSource{}

	settings, origin, err := ResolveVoiceSettings(context.Background(), override, voice, source)
	if err != nil {
		t.Fatalf("ResolveVoiceSettings failed: %v", err)
	}
	if settings != *override || origin != SettingsFromOverride {
		t.Errorf("Expected override settings, got %+v from %s", settings, origin)
	}
	if source.calls != 0 {
		t.Errorf("Expected no remote fetch, got %d", source.calls)
	}
}

func TestResolveVoiceSettings_VoiceSettings(t *testing.T) {
	stored := entities.VoiceSettings{Stability: 0.9, SimilarityBoost: 0.4, Style: 0.3}
	source := &fakeSettingsSource{}

	settings, origin, err := ResolveVoiceSettings(context.Background(), nil, entities.Voice{ID: "v", Settings: &stored}, source)
	if err != nil {
		t.Fatalf("ResolveVoiceSettings failed: %v", err)
	}
	if settings != stored || origin != SettingsFromVoice {
		t.Errorf("Expected stored voice settings, got %+v from %s", settings, origin)
	}
	if source.calls != 0 {
		t.Errorf("Expected no remote fetch, got %d", source.calls)
	}
}

func TestResolveVoiceSettings_Remote(t *testing.T) {
	remote := entities.VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75, UseSpeakerBoost: true}
	source := &fakeSettingsSource{settings: remote}

	settings, origin, err := ResolveVoiceSettings(context.Background(), nil, entities.Voice{ID: "v"}, source)
	if err != nil {
		t.Fatalf("ResolveVoiceSettings failed: %v", err)
	}
	if settings != remote || origin != SettingsFromRemote {
		t.Errorf("Expected remote settings, got %+v from %s", settings, origin)
	}
	if source.calls != 1 {
		t.Errorf("Expected 1 remote fetch, got %d", source.calls)
	}
}

func TestResolveVoiceSettings_RemoteError(t *testing.T) {
	fetchErr := errors.New("connection refused")
	source := &fakeSettingsSource{err: fetchErr}

	_, _, err := ResolveVoiceSettings(context.Background(), nil, entities.Voice{ID: "v"}, source)
	if !errors.Is(err, fetchErr) {
		t.Errorf("Expected wrapped fetch error, got %v", err)
	}
}

func TestResolveVoiceSettings_NoSource(t *testing.T) {
	_, _, err := ResolveVoiceSettings(context.Background(), nil, entities.Voice{ID: "v"}, nil)
	if !errors.Is(err, errNoSettingsSource) {
		t.Errorf("Expected errNoSettingsSource, got %v", err)
	}
}
