package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomm/taskpilot/internal/core/domain"
)

// DefaultListLimit caps the file and message listings.
const DefaultListLimit = 50

// FileStore persists the files collection.
type FileStore interface {
	LoadFiles(ctx context.Context) ([]domain.FileMeta, error)
	SaveFiles(ctx context.Context, files []domain.FileMeta) error
}

// FileService tracks upload metadata. Files are shared by all users, so it
// works against the record store directly rather than through a session.
type FileService struct {
	store  FileStore
	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewFileService(store FileStore, logger zerolog.Logger) *FileService {
	return &FileService{
		store:  store,
		logger: logger.With().Str("component", "file_service").Logger(),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

// Track records an upload. The collection is read before it is rewritten; if
// that read fails nothing is written.
func (s *FileService) Track(ctx context.Context, uploadedBy, filename string, size int64) (domain.FileMeta, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return domain.FileMeta{}, fmt.Errorf("%w: filename required", domain.ErrValidation)
	}
	if size < 0 {
		return domain.FileMeta{}, fmt.Errorf("%w: negative size", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.store.LoadFiles(ctx)
	if err != nil {
		return domain.FileMeta{}, err
	}

	meta := domain.FileMeta{Filename: filename, Size: size, UploadedBy: uploadedBy, Timestamp: s.now()}
	if err := s.store.SaveFiles(ctx, append(files, meta)); err != nil {
		return domain.FileMeta{}, err
	}

	s.logger.Info().Str("filename", filename).Int64("size", size).Str("by", uploadedBy).Msg("file tracked")
	return meta, nil
}

// List returns up to limit uploads, newest first.
func (s *FileService) List(ctx context.Context, limit int) ([]domain.FileMeta, error) {
	files, err := s.store.LoadFiles(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool { return files[i].Timestamp.After(files[j].Timestamp) })
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}
