package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voicecache/domain/entities"
)

// Stage is a step of one synthesis call
type Stage string

const (
	StageIdle        Stage = "idle"
	StageValidating  Stage = "validating"
	StageCacheCheck  Stage = "cache_check"
	StageRequesting  Stage = "requesting"
	StageDownloading Stage = "downloading"
	StagePersisting  Stage = "persisting"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Downloading and Persisting may end in Done when a concurrent writer
// published the same artifact first.
var stageTransitions = map[Stage][]Stage{
	StageIdle:        {StageValidating},
	StageValidating:  {StageCacheCheck, StageFailed},
	StageCacheCheck:  {StageDone, StageRequesting, StageFailed},
	StageRequesting:  {StageDownloading, StageFailed},
	StageDownloading: {StagePersisting, StageDone, StageFailed},
	StagePersisting:  {StageDone, StageFailed},
}

// Terminal reports whether no transition leaves the stage
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// CanTransition reports whether the pipeline may move from one stage to another
func CanTransition(from, to Stage) bool {
	for _, next := range stageTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// stageTracker follows a single call through the pipeline. It is never
// shared between calls.
type stageTracker struct {
	current   Stage
	history   []Stage
	key       entities.CacheKey
	startedAt time.Time
	logger    *zap.Logger
}

func newStageTracker(logger *zap.Logger) *stageTracker {
	return &stageTracker{
		current:   StageIdle,
		history:   []Stage{StageIdle},
		startedAt: time.Now(),
		logger:    logger,
	}
}

func (t *stageTracker) enter(next Stage) {
	if !CanTransition(t.current, next) {
		t.logger.Error("Invalid synthesis stage transition",
			zap.String("from", string(t.current)),
			zap.String("to", string(next)))
	}

	t.logger.Debug("Synthesis stage",
		zap.String("cacheKey", t.key.String()),
		zap.String("from", string(t.current)),
		zap.String("to", string(next)))

	t.current = next
	t.history = append(t.history, next)
}

// stages returns the stages entered so far, oldest first
func (t *stageTracker) stages() []string {
	names := make([]string, len(t.history))
	for i, stage := range t.history {
		names[i] = string(stage)
	}
	return names
}

// fail moves to Failed and hands err back for returning
func (t *stageTracker) fail(err error) error {
	failedAt := t.current
	t.enter(StageFailed)
	t.logger.Error("Synthesis failed",
		zap.String("cacheKey", t.key.String()),
		zap.String("stage", string(failedAt)),
		zap.Strings("stages", t.stages()),
		zap.Duration("elapsed", time.Since(t.startedAt)),
		zap.Error(err))
	return err
}
