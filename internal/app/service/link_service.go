package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/TinyLink/internal/app/model"
	"github.com/sifan077/TinyLink/internal/app/repository"
	"go.uber.org/zap"
)

const (
	maxValidityMinutes = 365 * 24 * 60

	unknownClientValue = "unknown"
	directReferrer     = "direct"
)

// LinkService defines behaviour-level operations on links.
type LinkService interface {
	CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error)
	Resolve(ctx context.Context, code string, client ClientInfo) (*model.Link, error)
	GetStats(ctx context.Context, code string) (*model.LinkStats, error)
	Counts(ctx context.Context) (model.StoreCounts, error)
	SweepExpired(ctx context.Context) (int, error)
}

// ClickPublisher receives every recorded click.
type ClickPublisher interface {
	Publish(event model.ClickEvent) error
}

// Metrics receives link lifecycle signals.
type Metrics interface {
	LinkCreated()
	Redirect(outcome string)
	LinksSwept(n int)
	ActiveLinks(n int)
}

// Redirect outcomes reported to Metrics.
const (
	OutcomeRedirected = "redirected"
	OutcomeNotFound   = "not_found"
	OutcomeExpired    = "expired"
)

// LinkServiceDeps groups dependencies required by the link service.
// Archive, Publisher and Metrics are optional.
type LinkServiceDeps struct {
	Logger          *zap.Logger
	Links           repository.LinkRepository
	Generator       *CodeGenerator
	Archive         repository.ArchiveRepository
	Publisher       ClickPublisher
	Metrics         Metrics
	DefaultValidity time.Duration
	Clock           func() time.Time
}

type linkService struct {
	logger          *zap.Logger
	links           repository.LinkRepository
	generator       *CodeGenerator
	archive         repository.ArchiveRepository
	publisher       ClickPublisher
	metrics         Metrics
	defaultValidity time.Duration
	now             func() time.Time
}

// NewLinkService returns a service implementation backed by the given dependencies.
func NewLinkService(deps LinkServiceDeps) LinkService {
	s := &linkService{
		logger:          deps.Logger,
		links:           deps.Links,
		generator:       deps.Generator,
		archive:         deps.Archive,
		publisher:       deps.Publisher,
		metrics:         deps.Metrics,
		defaultValidity: deps.DefaultValidity,
		now:             deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.generator == nil {
		s.generator = NewCodeGenerator(6, 10, 0)
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.defaultValidity <= 0 {
		s.defaultValidity = 30 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateLinkInput captures data required to create a link.
type CreateLinkInput struct {
	URL             string
	ValidityMinutes *int
	Code            string
}

// ClientInfo describes the requester of a redirect.
type ClientInfo struct {
	IP        string
	UserAgent string
	Referrer  string
}

func (s *linkService) CreateLink(ctx context.Context, input CreateLinkInput) (*model.Link, error) {
	if input.URL == "" {
		return nil, ErrURLRequired
	}
	if !isWebURL(input.URL) {
		return nil, ErrInvalidURL
	}

	validity := s.defaultValidity
	if input.ValidityMinutes != nil {
		minutes := *input.ValidityMinutes
		if minutes < 1 || minutes > maxValidityMinutes {
			return nil, ErrInvalidValidity
		}
		validity = time.Duration(minutes) * time.Minute
	}

	if input.Code != "" {
		if err := ValidateCustomCode(input.Code); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	link := &model.Link{
		Code:      input.Code,
		URL:       input.URL,
		CreatedAt: now,
		ExpiresAt: now.Add(validity),
	}

	if input.Code != "" {
		if err := s.links.Create(ctx, link); err != nil {
			if errors.Is(err, repository.ErrCodeTaken) {
				return nil, ErrDuplicateShortcode
			}
			return nil, fmt.Errorf("create link: %w", err)
		}
		s.generator.Remember(link.Code)
	} else {
		_, err := s.generator.Generate(ctx, func(code string) error {
			link.Code = code
			return s.links.Create(ctx, link)
		})
		if err != nil {
			return nil, fmt.Errorf("create link: %w", err)
		}
	}

	s.metrics.LinkCreated()
	s.refreshActive(ctx)
	s.logger.Info("short link created",
		zap.String("code", link.Code),
		zap.String("url", link.URL),
		zap.Time("expiry", link.ExpiresAt),
	)
	return link, nil
}

func (s *linkService) Resolve(ctx context.Context, code string, client ClientInfo) (*model.Link, error) {
	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			s.metrics.Redirect(OutcomeNotFound)
		}
		return nil, fmt.Errorf("resolve link: %w", err)
	}

	now := s.now().UTC()
	if link.Expired(now) {
		s.expire(ctx, code, now)
		s.metrics.Redirect(OutcomeExpired)
		return nil, fmt.Errorf("resolve link: %w", ErrLinkExpired)
	}

	event := model.ClickEvent{
		ID:        uuid.NewString(),
		LinkCode:  code,
		IP:        MaskIP(orDefault(client.IP, unknownClientValue)),
		UserAgent: orDefault(client.UserAgent, unknownClientValue),
		Referrer:  orDefault(client.Referrer, directReferrer),
		Timestamp: now,
	}

	updated, err := s.links.RecordClick(ctx, code, event)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			s.metrics.Redirect(OutcomeNotFound)
		}
		return nil, fmt.Errorf("record click: %w", err)
	}
	s.metrics.Redirect(OutcomeRedirected)

	if s.publisher != nil {
		go s.publish(event)
	}
	return updated, nil
}

func (s *linkService) GetStats(ctx context.Context, code string) (*model.LinkStats, error) {
	link, analytics, err := s.links.GetWithAnalytics(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	now := s.now().UTC()
	if link.Expired(now) {
		s.expire(ctx, code, now)
		return nil, fmt.Errorf("get stats: %w", ErrLinkExpired)
	}

	return buildStats(link, analytics, now), nil
}

func (s *linkService) Counts(ctx context.Context) (model.StoreCounts, error) {
	return s.links.Counts(ctx)
}

func (s *linkService) SweepExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()
	removed, err := s.links.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired links: %w", err)
	}
	if len(removed) == 0 {
		return 0, nil
	}

	s.metrics.LinksSwept(len(removed))
	s.refreshActive(ctx)
	s.logger.Info("pruned expired links", zap.Int("count", len(removed)))

	if s.archive != nil {
		rows := make([]model.ArchivedLink, len(removed))
		for i, link := range removed {
			rows[i] = model.NewArchivedLink(link, now)
		}
		if err := s.archive.Archive(ctx, rows); err != nil {
			return len(removed), fmt.Errorf("archive swept links: %w", err)
		}
	}
	return len(removed), nil
}

func (s *linkService) expire(ctx context.Context, code string, now time.Time) {
	deleted, err := s.links.DeleteIfExpired(ctx, code, now)
	if err != nil {
		s.logger.Error("failed to delete expired link", zap.String("code", code), zap.Error(err))
		return
	}
	if deleted {
		s.refreshActive(ctx)
		s.logger.Debug("expired link removed on access", zap.String("code", code))
	}
}

func (s *linkService) refreshActive(ctx context.Context) {
	counts, err := s.links.Counts(ctx)
	if err != nil {
		return
	}
	s.metrics.ActiveLinks(counts.Links)
}

func (s *linkService) publish(event model.ClickEvent) {
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Error("failed to publish click event", zap.Error(err), zap.String("code", event.LinkCode))
	}
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

type nopMetrics struct{}

func (nopMetrics) LinkCreated()    {}
func (nopMetrics) Redirect(string) {}
func (nopMetrics) LinksSwept(int)  {}
func (nopMetrics) ActiveLinks(int) {}
