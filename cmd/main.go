package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/voicecache/adapters/storage"
	"github.com/satriahrh/voicecache/adapters/tts"
	"github.com/satriahrh/voicecache/domain/repositories"
	"github.com/satriahrh/voicecache/internal/cachekey"
	"github.com/satriahrh/voicecache/internal/config"
	"github.com/satriahrh/voicecache/usecase"
)

var (
	envFile    string
	cacheRoot  string
	keyScope   string
	devLogging bool

	cfg    *config.Config
	logger *zap.Logger

	rootCmd = &cobra.Command{
		Use:           "voicecache",
		Short:         "Cached Eleven Labs text-to-speech",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file to load before reading the environment")
	rootCmd.PersistentFlags().StringVar(&cacheRoot, "cache-root", "", "cache root directory (default $TTS_CACHE_ROOT or the working directory)")
	rootCmd.PersistentFlags().StringVar(&keyScope, "key-scope", "", "cache key scope: request or text (default $TTS_CACHE_KEY_SCOPE)")
	rootCmd.PersistentFlags().BoolVar(&devLogging, "dev", false, "human readable debug logging")

	rootCmd.AddCommand(speakCmd, voicesCmd, serveCmd, tokenCmd)
}

// setup loads configuration, applies flag overrides and builds the logger
func setup(cmd *cobra.Command) error {
	c, err := config.Load(envFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("cache-root") {
		c.CacheRoot = cacheRoot
	}
	if cmd.Flags().Changed("key-scope") {
		c.CacheKeyScope = keyScope
	}
	if cmd.Flags().Changed("dev") {
		c.LogDevelopment = devLogging
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := newLogger(c.LogDevelopment)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, logger = c, l
	return nil
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// app holds the wired synthesis pipeline
type app struct {
	speech *usecase.SpeechService
	client *tts.ElevenLabsTTS
	store  *storage.FileStore
}

func newApp(c *config.Config, logger *zap.Logger) (*app, error) {
	// Initialize adapters
	client, err := tts.NewElevenLabsTTS(c.ElevenLabs, logger)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewFileStore(c.CacheRoot, logger)
	if err != nil {
		return nil, err
	}

	openStore := func(root string) (repositories.ArtifactStore, error) {
		return storage.NewFileStore(root, logger)
	}

	// Initialize usecase services
	speech := usecase.NewSpeechService(
		usecase.NewRequestBuilder(client, logger),
		cachekey.NewDeriver(c.KeyScope(), client.Variant()),
		client,
		store,
		openStore,
		logger,
	)

	logger.Info("Synthesis pipeline ready",
		zap.String("cacheDir", store.Dir()),
		zap.String("keyScope", string(c.KeyScope())),
		zap.String("variant", client.Variant()))

	return &app{speech: speech, client: client, store: store}, nil
}
