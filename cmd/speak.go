package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/voicecache/domain/entities"
	"github.com/satriahrh/voicecache/usecase"
)

var (
	speakVoice        string
	speakDir          string
	speakStability    float64
	speakSimilarity   float64
	speakStyle        float64
	speakSpeed        float64
	speakSpeakerBoost bool

	speakCmd = &cobra.Command{
		Use:   "speak [TEXT|-]",
		Short: "Synthesize text to a cached mp3 and print its path",
		Long:  "Synthesize text to a cached mp3 and print its path.\nPass - or no argument to read the text from stdin.",
		Args:  cobra.ArbitraryArgs,
		RunE:  runSpeak,
	}
)

func init() {
	speakCmd.Flags().StringVarP(&speakVoice, "voice", "v", "", "voice ID (default $ELEVEN_LABS_VOICE_ID)")
	speakCmd.Flags().StringVarP(&speakDir, "dir", "d", "", "save under this cache root instead of the default")
	speakCmd.Flags().Float64Var(&speakStability, "stability", 0, "voice stability, 0 to 1")
	speakCmd.Flags().Float64Var(&speakSimilarity, "similarity", 0, "voice similarity boost, 0 to 1")
	speakCmd.Flags().Float64Var(&speakStyle, "style", 0, "style exaggeration, 0 to 1")
	speakCmd.Flags().Float64Var(&speakSpeed, "speed", 0, "speaking speed")
	speakCmd.Flags().BoolVar(&speakSpeakerBoost, "speaker-boost", false, "enable speaker boost")
}

func runSpeak(cmd *cobra.Command, args []string) error {
	text, voiceID, err := speakInput(args, cmd.InOrStdin(), speakVoice, cfg.DefaultVoiceID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	override, err := settingsOverride(ctx, cmd, a.client)
	if err != nil {
		return err
	}

	artifact, err := a.speech.Synthesize(ctx, usecase.SynthesizeParams{
		Text:          text,
		Voice:         entities.Voice{ID: voiceID},
		Settings:      override,
		SaveDirectory: speakDir,
	})
	if err != nil {
		return err
	}

	source := "synthesized"
	if artifact.CacheHit {
		source = "cached"
	}
	if info, err := os.Stat(artifact.Path); err == nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s (%s)\n", source, artifact.Key, humanize.Bytes(uint64(info.Size())))
	}
	fmt.Fprintln(cmd.OutOrStdout(), artifact.Path)
	return nil
}

// speakInput resolves the text and voice ID and validates both before
// anything reaches the network
func speakInput(args []string, stdin io.Reader, voiceFlag, defaultVoiceID string) (string, string, error) {
	text, err := readText(args, stdin)
	if err != nil {
		return "", "", err
	}
	if err := entities.ValidateText(text); err != nil {
		return "", "", err
	}

	voiceID := defaultVoiceID
	if voiceFlag != "" {
		voiceID = voiceFlag
	}
	if err := entities.ValidateVoiceID(voiceID); err != nil {
		return "", "", err
	}
	return text, voiceID, nil
}

// readText joins the arguments, or reads stdin for none or "-"
func readText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("unable to read stdin: %w", err)
	}
	text := strings.TrimRight(string(data), "\r\n")
	if text == "" {
		return "", errors.New("no text given")
	}
	return text, nil
}

type defaultSettingsFetcher interface {
	DefaultVoiceSettings(ctx context.Context) (entities.VoiceSettings, error)
}

// settingsOverride returns nil when no settings flag is set. Otherwise the
// set flags are layered over the service defaults.
func settingsOverride(ctx context.Context, cmd *cobra.Command, defaults defaultSettingsFetcher) (*entities.VoiceSettings, error) {
	flags := cmd.Flags()
	names := []string{"stability", "similarity", "style", "speed", "speaker-boost"}

	changed := false
	for _, name := range names {
		if flags.Changed(name) {
			changed = true
			break
		}
	}
	if !changed {
		return nil, nil
	}

	settings, err := defaults.DefaultVoiceSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch default voice settings: %w", err)
	}

	if flags.Changed("stability") {
		settings.Stability = speakStability
	}
	if flags.Changed("similarity") {
		settings.SimilarityBoost = speakSimilarity
	}
	if flags.Changed("style") {
		settings.Style = speakStyle
	}
	if flags.Changed("speed") {
		settings.Speed = speakSpeed
	}
	if flags.Changed("speaker-boost") {
		settings.UseSpeakerBoost = speakSpeakerBoost
	}

	logger.Debug("Using voice settings from flags", zap.Any("settings", settings))
	return &settings, nil
}
