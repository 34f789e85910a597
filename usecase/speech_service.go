package usecase

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/satriahrh/voicecache/domain"
	"github.com/satriahrh/voicecache/domain/entities"
	"github.com/satriahrh/voicecache/domain/repositories"
	"github.com/satriahrh/voicecache/internal/cachekey"
)

var errTargetOccupied = errors.New("target is occupied by an incomplete file")

// SynthesizeParams describes one synthesis call
type SynthesizeParams struct {
	Text  string
	Voice entities.Voice
	// Settings overrides the voice settings when set
	Settings *entities.VoiceSettings
	// SaveDirectory overrides the default cache root when set
	SaveDirectory string
}

// StoreOpener opens the artifact store rooted at a directory
type StoreOpener func(root string) (repositories.ArtifactStore, error)

// SpeechService orchestrates the synthesis flow: validate, derive the key,
// check the cache, request audio on a miss and persist it
type SpeechService struct {
	builder      *RequestBuilder
	keys         *cachekey.Deriver
	synthesizer  repositories.SpeechSynthesizer
	defaultStore repositories.ArtifactStore
	openStore    StoreOpener
	logger       *zap.Logger
}

// NewSpeechService creates a new speech service
func NewSpeechService(
	builder *RequestBuilder,
	keys *cachekey.Deriver,
	synthesizer repositories.SpeechSynthesizer,
	defaultStore repositories.ArtifactStore,
	openStore StoreOpener,
	logger *zap.Logger,
) *SpeechService {
	return &SpeechService{
		builder:      builder,
		keys:         keys,
		synthesizer:  synthesizer,
		defaultStore: defaultStore,
		openStore:    openStore,
		logger:       logger,
	}
}

// Synthesize returns the artifact for the request, calling the synthesis
// service only on a cache miss
func (s *SpeechService) Synthesize(ctx context.Context, params SynthesizeParams) (*entities.Artifact, error) {
	tracker := newStageTracker(s.logger)

	// Step 1: Validate and resolve settings
	tracker.enter(StageValidating)
	req, err := s.builder.Build(ctx, params.Text, params.Voice, params.Settings)
	if err != nil {
		return nil, tracker.fail(err)
	}

	store, err := s.store(params.SaveDirectory)
	if err != nil {
		return nil, tracker.fail(err)
	}
	key, err := s.keys.Derive(req)
	if err != nil {
		return nil, tracker.fail(err)
	}
	tracker.key = key

	// Step 2: Cache check
	tracker.enter(StageCacheCheck)
	hit, err := store.Exists(key)
	if err != nil {
		return nil, tracker.fail(err)
	}
	if hit {
		tracker.enter(StageDone)
		s.logger.Info("Serving cached artifact",
			zap.String("cacheKey", key.String()),
			zap.String("voiceID", req.VoiceID()))
		return &entities.Artifact{Key: key, Path: store.Path(key), CacheHit: true}, nil
	}

	// Step 3: Remote synthesis
	tracker.enter(StageRequesting)
	audio, err := s.synthesizer.Synthesize(ctx, req)
	if err != nil {
		return nil, tracker.fail(err)
	}
	defer audio.Close()

	// Step 4: Stream to storage
	tracker.enter(StageDownloading)
	path, err := s.persist(ctx, store, key, audio, tracker)
	if errors.Is(err, domain.ErrArtifactExists) {
		path, err = s.adoptExisting(store, key)
	}
	if err != nil {
		return nil, tracker.fail(err)
	}

	tracker.enter(StageDone)
	s.logger.Info("Synthesized artifact",
		zap.String("cacheKey", key.String()),
		zap.String("voiceID", req.VoiceID()),
		zap.String("path", path))

	return &entities.Artifact{Key: key, Path: path}, nil
}

// StreamSynthesize is declared for streaming playback and always fails
// with a NotSupportedError
func (s *SpeechService) StreamSynthesize(ctx context.Context, params SynthesizeParams) (io.ReadCloser, error) {
	return nil, &domain.NotSupportedError{Capability: "streaming synthesis"}
}

func (s *SpeechService) store(saveDirectory string) (repositories.ArtifactStore, error) {
	if saveDirectory == "" || s.openStore == nil {
		return s.defaultStore, nil
	}
	return s.openStore(saveDirectory)
}

// persist copies audio into a new sink. The deferred Close discards the
// staging data on every path that does not reach a successful Commit.
func (s *SpeechService) persist(
	ctx context.Context,
	store repositories.ArtifactStore,
	key entities.CacheKey,
	audio io.Reader,
	tracker *stageTracker,
) (string, error) {
	sink, err := store.Create(key)
	if err != nil {
		return "", err
	}
	defer sink.Close()

	if _, err := io.Copy(sink, &contextReader{ctx: ctx, r: audio}); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}

	tracker.enter(StagePersisting)
	return sink.Commit()
}

// adoptExisting settles a lost publish race by returning the winner's artifact
func (s *SpeechService) adoptExisting(store repositories.ArtifactStore, key entities.CacheKey) (string, error) {
	exists, err := store.Exists(key)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", &domain.IOError{Op: "publish", Path: store.Path(key), Err: errTargetOccupied}
	}

	s.logger.Warn("Artifact was published by a concurrent writer",
		zap.String("cacheKey", key.String()))
	return store.Path(key), nil
}

// contextReader stops a copy as soon as ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *contextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
