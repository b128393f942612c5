// Package content coordinates the page store, the Markdown renderer and the
// search index. It is the only layer that writes pages.
package content

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/starford/tutordocs/internal/apperr"
	"github.com/starford/tutordocs/internal/checksum"
	"github.com/starford/tutordocs/internal/index"
	"github.com/starford/tutordocs/internal/models"
	"github.com/starford/tutordocs/internal/parser"
	"github.com/starford/tutordocs/internal/render"
	"github.com/starford/tutordocs/internal/storage"
)

// PageSummary is one entry of the navigation list.
type PageSummary struct {
	Key   string `json:"key"`
	Title string `json:"title"`
}

// Notifier is told about every page the service creates or updates. Kinds
// are index.EventCreated and index.EventUpdated.
type Notifier func(kind, key string)

// Service reads and writes pages.
type Service struct {
	store    storage.Provider
	renderer render.Renderer
	db       index.PageIndex
	notify   Notifier
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier registers a callback for page changes made through Write.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithLogger sets the logger used for index maintenance warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a content service.
func NewService(store storage.Provider, renderer render.Renderer, db index.PageIndex, opts ...Option) *Service {
	s := &Service{
		store:    store,
		renderer: renderer,
		db:       db,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Read returns the stored Markdown of key together with freshly rendered HTML.
func (s *Service) Read(_ context.Context, key string) (*models.Page, error) {
	data, err := s.store.Read(key)
	if err != nil {
		return nil, err
	}
	return s.page(key, data)
}

// Write persists markdown verbatim under key, creating the page if needed,
// and returns the page with its rendered HTML. Blank content is rejected.
func (s *Service) Write(_ context.Context, key, markdown string) (*models.Page, error) {
	if err := storage.ValidateKey(key); err != nil {
		return nil, err
	}
	if strings.TrimSpace(markdown) == "" {
		return nil, fmt.Errorf("content: markdown is required: %w", apperr.ErrValidation)
	}

	data := []byte(markdown)
	if err := s.store.Write(key, data); err != nil {
		return nil, err
	}

	page, err := s.page(key, data)
	if err != nil {
		return nil, err
	}
	s.reindex(key, data)
	return page, nil
}

// EnsureSeeded writes the default tutorial when the store holds no pages.
// It never touches a populated store and reports how many pages it wrote.
func (s *Service) EnsureSeeded(_ context.Context) (int, error) {
	metas, err := s.store.List()
	if err != nil {
		return 0, err
	}
	if len(metas) > 0 {
		return 0, nil
	}

	for i, key := range SeedOrder {
		data, err := SeedPage(key)
		if err != nil {
			return i, err
		}
		if err := s.store.Write(key, data); err != nil {
			return i, fmt.Errorf("content: seed %s: %w", key, err)
		}
		s.reindex(key, data)
	}
	s.logger.Info("content: seeded default pages", slog.Int("count", len(SeedOrder)))
	return len(SeedOrder), nil
}

// List returns every page in navigation order: the default tutorial pages
// first, then any other pages alphabetically.
func (s *Service) List(_ context.Context) ([]PageSummary, error) {
	metas, err := s.store.List()
	if err != nil {
		return nil, err
	}
	titles, err := s.db.Titles()
	if err != nil {
		return nil, err
	}

	out := make([]PageSummary, 0, len(metas))
	for _, m := range metas {
		title := titles[m.Key]
		if title == "" {
			title = m.Key
		}
		out = append(out, PageSummary{Key: m.Key, Title: title})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := navRank(out[i].Key), navRank(out[j].Key)
		if ri != rj {
			return ri < rj
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("content: query is required: %w", apperr.ErrValidation)
	}
	return s.db.Search(query, limit)
}

func (s *Service) page(key string, data []byte) (*models.Page, error) {
	html, err := s.renderer.Render(data)
	if err != nil {
		return nil, err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return &models.Page{
		Key:      key,
		Markdown: string(data),
		HTML:     html,
		Title:    res.Title,
		Checksum: checksum.Sum(data),
	}, nil
}

// reindex refreshes the index entry for key and notifies listeners. The page
// is already on disk, so failures are logged rather than returned.
func (s *Service) reindex(key string, data []byte) {
	prev, _ := s.db.GetChecksum(key)
	if err := index.IndexPage(s.db, key, data); err != nil {
		s.logger.Warn("content: index failed", slog.String("page", key), slog.String("error", err.Error()))
		return
	}
	if s.notify == nil {
		return
	}
	if prev == "" {
		s.notify(index.EventCreated, key)
	} else {
		s.notify(index.EventUpdated, key)
	}
}

func navRank(key string) int {
	if i := slices.Index(SeedOrder, key); i >= 0 {
		return i
	}
	return len(SeedOrder)
}
