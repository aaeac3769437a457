package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sifan077/TinyLink/internal/app/model"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrCodeTaken signals that a link with the same short code is already stored.
	ErrCodeTaken = errors.New("short code already taken")
)

// LinkRepository defines the data access contract for short links and their analytics.
// A link and its analytics record are always created and removed together.
type LinkRepository interface {
	Create(ctx context.Context, link *model.Link) error
	GetByCode(ctx context.Context, code string) (*model.Link, error)
	GetWithAnalytics(ctx context.Context, code string) (*model.Link, *model.Analytics, error)
	RecordClick(ctx context.Context, code string, event model.ClickEvent) (*model.Link, error)
	DeleteIfExpired(ctx context.Context, code string, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) ([]model.Link, error)
	Counts(ctx context.Context) (model.StoreCounts, error)
}

type memoryLinkRepository struct {
	mu        sync.RWMutex
	links     map[string]*model.Link
	analytics map[string]*model.Analytics
}

// NewMemoryLinkRepository returns a LinkRepository backed by two maps under one lock.
func NewMemoryLinkRepository() LinkRepository {
	return &memoryLinkRepository{
		links:     make(map[string]*model.Link),
		analytics: make(map[string]*model.Analytics),
	}
}

func (r *memoryLinkRepository) Create(ctx context.Context, link *model.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.links[link.Code]; ok {
		return ErrCodeTaken
	}

	stored := *link
	r.links[link.Code] = &stored
	r.analytics[link.Code] = &model.Analytics{
		Details:   []model.ClickEvent{},
		CreatedAt: link.CreatedAt,
	}
	return nil
}

func (r *memoryLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[code]
	if !ok {
		return nil, ErrLinkNotFound
	}
	found := *link
	return &found, nil
}

func (r *memoryLinkRepository) GetWithAnalytics(ctx context.Context, code string) (*model.Link, *model.Analytics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[code]
	if !ok {
		return nil, nil, ErrLinkNotFound
	}
	stats, ok := r.analytics[code]
	if !ok {
		return nil, nil, ErrLinkNotFound
	}

	found := *link
	clone := stats.Clone()
	return &found, &clone, nil
}

func (r *memoryLinkRepository) RecordClick(ctx context.Context, code string, event model.ClickEvent) (*model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[code]
	if !ok {
		return nil, ErrLinkNotFound
	}
	stats, ok := r.analytics[code]
	if !ok {
		return nil, ErrLinkNotFound
	}

	link.Clicks++
	stats.Total++
	stats.Details = append(stats.Details, event)

	found := *link
	return &found, nil
}

func (r *memoryLinkRepository) DeleteIfExpired(ctx context.Context, code string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.links[code]
	if !ok || !link.Expired(now) {
		return false, nil
	}
	delete(r.links, code)
	delete(r.analytics, code)
	return true, nil
}

func (r *memoryLinkRepository) DeleteExpired(ctx context.Context, now time.Time) ([]model.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []model.Link
	for code, link := range r.links {
		if !link.Expired(now) {
			continue
		}
		removed = append(removed, *link)
		delete(r.links, code)
		delete(r.analytics, code)
	}
	return removed, nil
}

func (r *memoryLinkRepository) Counts(ctx context.Context) (model.StoreCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return model.StoreCounts{
		Links:     len(r.links),
		Analytics: len(r.analytics),
	}, nil
}
