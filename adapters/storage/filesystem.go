package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/voicecache/domain"
	"github.com/satriahrh/voicecache/domain/entities"
	"github.com/satriahrh/voicecache/domain/repositories"
)

const (
	providerDir   = "ElevenLabs"
	featureDir    = "TextToSpeech"
	stagingSuffix = ".partial"
	writeBufSize  = 32 * 1024
)

var errEmptyArtifact = errors.New("refusing to publish an empty artifact")

// FileStore keeps artifacts under <root>/ElevenLabs/TextToSpeech.
// Artifacts are staged next to their final path and published with a hard
// link, which fails if the target exists. A reader therefore never sees a
// partially written artifact, and two writers for one key cannot both win.
type FileStore struct {
	root   string
	dir    string
	logger *zap.Logger
}

// Ensure FileStore implements the ArtifactStore interface
var _ repositories.ArtifactStore = (*FileStore)(nil)

// NewFileStore creates a store rooted at root. An empty root means the
// current working directory, resolved once here.
func NewFileStore(root string, logger *zap.Logger) (*FileStore, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		root = wd
		logger.Info("Using working directory as cache root", zap.String("root", root))
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache root %q: %w", root, err)
	}

	s := &FileStore{
		root:   abs,
		dir:    filepath.Join(abs, providerDir, featureDir),
		logger: logger,
	}
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	return s, nil
}

// Root returns the absolute cache root
func (s *FileStore) Root() string {
	return s.root
}

// Dir returns the directory holding the artifacts
func (s *FileStore) Dir() string {
	return s.dir
}

// Path implements repositories.ArtifactStore
func (s *FileStore) Path(key entities.CacheKey) string {
	return filepath.Join(s.dir, key.Filename())
}

// Exists implements repositories.ArtifactStore. Only a regular, non-empty
// file counts as a cached artifact.
func (s *FileStore) Exists(key entities.CacheKey) (bool, error) {
	path := s.Path(key)
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, &domain.IOError{Op: "stat", Path: path, Err: err}
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

// Create implements repositories.ArtifactStore
func (s *FileStore) Create(key entities.CacheKey) (repositories.ArtifactSink, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}

	exists, err := s.Exists(key)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrArtifactExists
	}

	// CreateTemp opens with O_EXCL, so concurrent writers never share a staging file.
	file, err := os.CreateTemp(s.dir, key.Filename()+".*"+stagingSuffix)
	if err != nil {
		return nil, &domain.IOError{Op: "create", Path: s.Path(key), Err: err}
	}

	s.logger.Debug("Opened artifact sink",
		zap.String("cacheKey", key.String()),
		zap.String("staging", file.Name()))

	return &fileSink{
		store:  s,
		key:    key,
		file:   file,
		writer: bufio.NewWriterSize(file, writeBufSize),
	}, nil
}

// SweepStaging removes staging files older than maxAge, left behind by
// processes that died mid-write. Published artifacts are never touched.
func (s *FileStore) SweepStaging(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, &domain.IOError{Op: "readdir", Path: s.dir, Err: err}
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), stagingSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := s.removeStaging(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("Removed stale staging files", zap.Int("count", removed), zap.String("dir", s.dir))
	}
	return removed, nil
}

func (s *FileStore) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &domain.IOError{Op: "mkdir", Path: s.dir, Err: err}
	}
	return nil
}

func (s *FileStore) removeStaging(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Failed to remove staging file", zap.String("path", path), zap.Error(err))
		return &domain.IOError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

// fileSink writes into a staging file until Commit publishes it
type fileSink struct {
	store      *FileStore
	key        entities.CacheKey
	file       *os.File
	writer     *bufio.Writer
	written    int64
	fileClosed bool
	committed  bool
	closed     bool
}

func (w *fileSink) Write(p []byte) (int, error) {
	if w.closed || w.committed {
		return 0, &domain.IOError{Op: "write", Path: w.file.Name(), Err: os.ErrClosed}
	}

	n, err := w.writer.Write(p)
	w.written += int64(n)
	if err != nil {
		return n, &domain.IOError{Op: "write", Path: w.file.Name(), Err: err}
	}
	return n, nil
}

func (w *fileSink) Commit() (string, error) {
	staging := w.file.Name()
	target := w.store.Path(w.key)

	if w.closed || w.committed {
		return "", &domain.IOError{Op: "commit", Path: target, Err: os.ErrClosed}
	}
	if w.written == 0 {
		return "", &domain.IOError{Op: "commit", Path: target, Err: errEmptyArtifact}
	}

	if err := w.writer.Flush(); err != nil {
		return "", &domain.IOError{Op: "flush", Path: staging, Err: err}
	}
	if err := w.file.Sync(); err != nil {
		return "", &domain.IOError{Op: "sync", Path: staging, Err: err}
	}
	w.fileClosed = true
	if err := w.file.Close(); err != nil {
		return "", &domain.IOError{Op: "close", Path: staging, Err: err}
	}

	if err := os.Link(staging, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", domain.ErrArtifactExists
		}
		return "", &domain.IOError{Op: "publish", Path: target, Err: err}
	}
	w.committed = true

	// The artifact is published; a leftover staging name is only clutter.
	_ = w.store.removeStaging(staging)

	w.store.logger.Debug("Published artifact",
		zap.String("cacheKey", w.key.String()),
		zap.String("path", target),
		zap.Int64("bytes", w.written))

	return target, nil
}

// Close releases the staging file. It is safe to call more than once and
// after Commit.
func (w *fileSink) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	if !w.fileClosed {
		w.fileClosed = true
		_ = w.file.Close()
	}
	return w.store.removeStaging(w.file.Name())
}
