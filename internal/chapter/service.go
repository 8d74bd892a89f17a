// Package chapter coordinates the vault, the catalog index and the cipher
// for chapter delivery and authoring.
package chapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/starford/novelcipher/internal/apperr"
	"github.com/starford/novelcipher/internal/checksum"
	"github.com/starford/novelcipher/internal/cipher"
	"github.com/starford/novelcipher/internal/index"
	"github.com/starford/novelcipher/internal/metrics"
	"github.com/starford/novelcipher/internal/parser"
	"github.com/starford/novelcipher/internal/storage"
)

// Detail is the full representation of a chapter as delivered to readers.
// The body is never decrypted server side.
type Detail struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Path       string    `json:"path"`
	Tags       []string  `json:"tags"`
	Ciphertext string    `json:"ciphertext"`
	Checksum   string    `json:"checksum"`
	Prev       int       `json:"prev,omitempty"`
	Next       int       `json:"next,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListItem is a lightweight catalog entry.
type ListItem struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	Tags      []string  `json:"tags"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Draft is the authoring input for Create, Update and Seal.
type Draft struct {
	Number int
	Title  string
	Tags   []string
}

// EventSink receives the changes made through the service. kind is one of
// index.KindCreated, index.KindUpdated or index.KindDeleted.
type EventSink interface {
	PublishChapterEvent(kind, path string, number int)
}

// Service coordinates storage and index operations.
type Service struct {
	store  storage.Provider
	db     index.ChapterIndex
	cipher *cipher.Service
	events EventSink
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithCipher enables Seal.
func WithCipher(c *cipher.Service) Option {
	return func(s *Service) { s.cipher = c }
}

// WithEvents publishes every write and delete to sink.
func WithEvents(sink EventSink) Option {
	return func(s *Service) { s.events = sink }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new chapter service.
func NewService(store storage.Provider, db index.ChapterIndex, opts ...Option) *Service {
	s := &Service{store: store, db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetChapter returns the sealed chapter with its catalog neighbours.
func (s *Service) GetChapter(_ context.Context, number int) (*Detail, error) {
	row, err := s.db.GetByNumber(number)
	if err != nil {
		return nil, err
	}
	data, err := s.store.Read(row.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	d, err := s.buildDetail(row.Path, data)
	if err != nil {
		return nil, err
	}
	d.UpdatedAt = row.UpdatedAt
	metrics.ChaptersServed.Inc()
	return d, nil
}

// ListChapters returns a page of the catalog ordered by chapter number.
func (s *Service) ListChapters(_ context.Context, limit, offset int) ([]ListItem, int, error) {
	rows, total, err := s.db.ListChapters(limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ListItem, len(rows))
	for i, r := range rows {
		items[i] = ListItem{
			Number:    r.Number,
			Title:     r.Title,
			Path:      r.Path,
			Tags:      nonNilSlice(r.Tags),
			Checksum:  r.Checksum,
			Size:      r.Size,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// CreateChapter stores an already sealed payload as a new chapter.
func (s *Service) CreateChapter(_ context.Context, d Draft, ciphertext string) (*Detail, error) {
	if _, err := s.db.GetByNumber(d.Number); err == nil {
		return nil, fmt.Errorf("chapter %d: %w", d.Number, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	path := parser.FileName(d.Number)
	if _, err := s.store.Read(path); err == nil {
		return nil, fmt.Errorf("%s: %w", path, apperr.ErrAlreadyExists)
	}
	return s.write(path, d, ciphertext, nil)
}

// UpdateChapter replaces a chapter's payload. A non-empty ifMatch must equal
// the stored checksum.
func (s *Service) UpdateChapter(_ context.Context, d Draft, ciphertext, ifMatch string) (*Detail, error) {
	row, err := s.db.GetByNumber(d.Number)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.Read(row.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if d.Title == "" {
		d.Title = row.Title
	}
	if d.Tags == nil {
		d.Tags = row.Tags
	}
	return s.write(row.Path, d, ciphertext, existing)
}

// DeleteChapter removes a chapter from storage and index.
func (s *Service) DeleteChapter(_ context.Context, number int) error {
	row, err := s.db.GetByNumber(number)
	if err != nil {
		return err
	}
	existing, err := s.store.Read(row.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := s.db.DeleteChapter(row.Path); err != nil {
		return err
	}
	if err := s.store.Delete(row.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		if existing != nil {
			s.restore(row.Path, existing)
		}
		return err
	}
	s.publish(index.KindDeleted, row.Path, number)
	return nil
}

// Search delegates title and tag search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(results), nil
}

// Seal encrypts plaintext and creates or replaces the chapter.
func (s *Service) Seal(ctx context.Context, d Draft, plaintext string) (*Detail, error) {
	if s.cipher == nil {
		return nil, errors.New("chapter: seal: no cipher configured")
	}
	ct, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("chapter: seal: %w", err)
	}

	var out *Detail
	if _, err := s.db.GetByNumber(d.Number); err == nil {
		out, err = s.UpdateChapter(ctx, d, ct, "")
		if err != nil {
			return nil, err
		}
	} else if errors.Is(err, apperr.ErrNotFound) {
		out, err = s.CreateChapter(ctx, d, ct)
		if err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}
	metrics.ChaptersSealed.Inc()
	s.logger.Info("chapter sealed", slog.Int("number", d.Number), slog.String("path", out.Path))
	return out, nil
}

// IndexFile parses data and upserts it into the index.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.db, path, data)
}

// write stores a chapter. previous is the file being replaced, nil on create.
// The index is updated before the file, so the watcher finds the new
// checksum already indexed and stays silent.
func (s *Service) write(path string, d Draft, ciphertext string, previous []byte) (*Detail, error) {
	if d.Number < 1 {
		return nil, fmt.Errorf("%w: chapter number must be positive", apperr.ErrInvalidChapter)
	}
	if _, err := cipher.DecodePayload(ciphertext); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidChapter, err)
	}
	data, err := parser.Compose(parser.Header{Chapter: d.Number, Title: d.Title, Tags: d.Tags}, ciphertext)
	if err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, data); err != nil {
		return nil, err
	}
	if err := s.store.Write(path, data); err != nil {
		s.restore(path, previous)
		return nil, err
	}
	out, err := s.buildDetail(path, data)
	if err != nil {
		return nil, err
	}
	out.UpdatedAt = time.Now()

	kind := index.KindUpdated
	if previous == nil {
		kind = index.KindCreated
	}
	s.publish(kind, path, d.Number)
	return out, nil
}

// restore puts the index back to previous after a failed file operation.
func (s *Service) restore(path string, previous []byte) {
	var err error
	if previous == nil {
		err = s.db.DeleteChapter(path)
	} else {
		err = s.IndexFile(path, previous)
	}
	if err != nil {
		s.logger.Error("chapter: index restore failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (s *Service) publish(kind, path string, number int) {
	if s.events != nil {
		s.events.PublishChapterEvent(kind, path, number)
	}
}

// buildDetail constructs a Detail from raw file data without re-reading it.
func (s *Service) buildDetail(path string, data []byte) (*Detail, error) {
	res, err := parser.Parse(path, data)
	if err != nil {
		return nil, err
	}
	prev, next, err := s.db.Neighbours(res.Number)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Number:     res.Number,
		Title:      res.Title,
		Path:       path,
		Tags:       nonNilSlice(res.Tags),
		Ciphertext: res.Ciphertext,
		Checksum:   checksum.Sum(data),
		Prev:       prev,
		Next:       next,
	}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
