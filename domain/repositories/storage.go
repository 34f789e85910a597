package repositories

import (
	"io"

	"github.com/satriahrh/voicecache/domain/entities"
)

// ArtifactStore keeps synthesized audio on durable storage
type ArtifactStore interface {
	// Path returns the final location of the artifact for key
	Path(key entities.CacheKey) string
	// Exists reports whether a complete artifact is present for key
	Exists(key entities.CacheKey) (bool, error)
	// Create opens a sink for a new artifact. It returns domain.ErrArtifactExists
	// when the artifact is already present.
	Create(key entities.CacheKey) (ArtifactSink, error)
}

// ArtifactSink receives the artifact bytes. Close must always be called;
// anything not committed is discarded.
type ArtifactSink interface {
	io.Writer
	// Commit flushes and publishes the artifact, returning its path. It returns
	// domain.ErrArtifactExists if another writer published the key first.
	Commit() (string, error)
	io.Closer
}
