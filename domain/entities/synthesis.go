package entities

// SynthesisRequest is a validated request with its effective voice settings.
// Fields are unexported so a built request cannot be changed afterwards.
type SynthesisRequest struct {
	text     string
	voiceID  string
	settings VoiceSettings
}

// NewSynthesisRequest validates the input and builds an immutable request
func NewSynthesisRequest(text, voiceID string, settings VoiceSettings) (*SynthesisRequest, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if err := ValidateVoiceID(voiceID); err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &SynthesisRequest{
		text:     text,
		voiceID:  voiceID,
		settings: settings,
	}, nil
}

func (r *SynthesisRequest) Text() string {
	return r.text
}

func (r *SynthesisRequest) VoiceID() string {
	return r.voiceID
}

// Settings returns a copy of the effective voice settings
func (r *SynthesisRequest) Settings() VoiceSettings {
	return r.settings
}
