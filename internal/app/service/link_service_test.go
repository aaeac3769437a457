package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sifan077/TinyLink/internal/app/model"
	"github.com/sifan077/TinyLink/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type mockLinkRepository struct {
	repository.LinkRepository
	createFn func(ctx context.Context, link *model.Link) error
	getFn    func(ctx context.Context, code string) (*model.Link, error)
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	if m.createFn != nil {
		return m.createFn(ctx, link)
	}
	return nil
}

func (m *mockLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return nil, repository.ErrLinkNotFound
}

func (m *mockLinkRepository) Counts(ctx context.Context) (model.StoreCounts, error) {
	return model.StoreCounts{}, nil
}

type fakeArchive struct {
	mu   sync.Mutex
	rows []model.ArchivedLink
	err  error
}

func (a *fakeArchive) Archive(ctx context.Context, links []model.ArchivedLink) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.rows = append(a.rows, links...)
	return nil
}

type chanPublisher struct {
	events chan model.ClickEvent
}

func (p *chanPublisher) Publish(event model.ClickEvent) error {
	p.events <- event
	return nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	created  int
	outcomes map[string]int
	swept    int
	active   int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{outcomes: make(map[string]int)}
}

func (m *recordingMetrics) LinkCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *recordingMetrics) Redirect(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome]++
}

func (m *recordingMetrics) LinksSwept(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.swept += n
}

func (m *recordingMetrics) ActiveLinks(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = n
}

func newTestService(t *testing.T, clock *fakeClock, opts ...func(*LinkServiceDeps)) LinkService {
	t.Helper()
	deps := LinkServiceDeps{
		Links:     repository.NewMemoryLinkRepository(),
		Generator: NewCodeGenerator(6, 10, 1000),
		Clock:     clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewLinkService(deps)
}

func intPtr(v int) *int { return &v }

func TestLinkService_CreateLink(t *testing.T) {
	clock := newFakeClock()
	svc := newTestService(t, clock)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: "https://example.com"})
	require.NoError(t, err)

	assert.Len(t, link.Code, 6)
	for _, r := range link.Code {
		assert.True(t, strings.ContainsRune(charset, r), "unexpected rune %q", r)
	}
	assert.Equal(t, "https://example.com", link.URL)
	assert.Equal(t, clock.Now(), link.CreatedAt)
	assert.Equal(t, clock.Now().Add(30*time.Minute), link.ExpiresAt)
}

func TestLinkService_CreateLink_Validity(t *testing.T) {
	clock := newFakeClock()
	svc := newTestService(t, clock)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{
		URL:             "https://example.com",
		ValidityMinutes: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(time.Minute), link.ExpiresAt)
}

func TestLinkService_CreateLink_CustomCode(t *testing.T) {
	svc := newTestService(t, newFakeClock())

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: "http://example.com/a", Code: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", link.Code)

	_, err = svc.CreateLink(context.Background(), CreateLinkInput{URL: "http://example.com/b", Code: "abc123"})
	assert.ErrorIs(t, err, ErrDuplicateShortcode)
}

func TestLinkService_CreateLink_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input CreateLinkInput
		want  error
	}{
		{"missing url", CreateLinkInput{}, ErrURLRequired},
		{"not a url", CreateLinkInput{URL: "not-a-url"}, ErrInvalidURL},
		{"ftp scheme", CreateLinkInput{URL: "ftp://example.com"}, ErrInvalidURL},
		{"no host", CreateLinkInput{URL: "https://"}, ErrInvalidURL},
		{"zero validity", CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(0)}, ErrInvalidValidity},
		{"negative validity", CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(-5)}, ErrInvalidValidity},
		{"validity over a year", CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(525601)}, ErrInvalidValidity},
		{"shortcode with dash", CreateLinkInput{URL: "https://example.com", Code: "abc-123"}, ErrInvalidShortcode},
		{"shortcode too long", CreateLinkInput{URL: "https://example.com", Code: strings.Repeat("a", 21)}, ErrInvalidShortcode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, newFakeClock())
			_, err := svc.CreateLink(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLinkService_CreateLink_RepositoryError(t *testing.T) {
	boom := errors.New("boom")
	repo := &mockLinkRepository{
		createFn: func(ctx context.Context, link *model.Link) error {
			if link.Code == "" {
				t.Fatal("expected code to be set")
			}
			return boom
		},
	}

	svc := NewLinkService(LinkServiceDeps{Links: repo})
	_, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: "https://example.com"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repository error, got %v", err)
	}
}

func TestLinkService_CreateLink_UniqueCodes(t *testing.T) {
	svc := newTestService(t, newFakeClock())
	faker := gofakeit.New(42)

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		link, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: faker.URL()})
		require.NoError(t, err)
		_, dup := seen[link.Code]
		require.False(t, dup, "code %s issued twice", link.Code)
		seen[link.Code] = struct{}{}
	}

	counts, err := svc.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StoreCounts{Links: 500, Analytics: 500}, counts)
}

func TestLinkService_Resolve_NotFound(t *testing.T) {
	repo := &mockLinkRepository{
		getFn: func(ctx context.Context, code string) (*model.Link, error) {
			return nil, repository.ErrLinkNotFound
		},
	}

	svc := NewLinkService(LinkServiceDeps{Links: repo})
	_, err := svc.Resolve(context.Background(), "missing", ClientInfo{})
	if !errors.Is(err, repository.ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}
}

func TestLinkService_Resolve_RecordsClick(t *testing.T) {
	clock := newFakeClock()
	metrics := newRecordingMetrics()
	svc := newTestService(t, clock, func(d *LinkServiceDeps) { d.Metrics = metrics })
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", Code: "go"})
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, link.Code, ClientInfo{
		IP:        "203.0.113.7",
		UserAgent: "curl/8.0",
		Referrer:  "https://news.example.org",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", resolved.URL)
	assert.Equal(t, 1, resolved.Clicks)

	_, err = svc.Resolve(ctx, link.Code, ClientInfo{})
	require.NoError(t, err)

	stats, err := svc.GetStats(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalClicks)
	require.Len(t, stats.ClickDetails, 2)

	first := stats.ClickDetails[0]
	assert.Equal(t, "203.0.113.xxx", first.IP)
	assert.Equal(t, "curl/8.0", first.UserAgent)
	assert.Equal(t, "https://news.example.org", first.Referrer)
	assert.Equal(t, model.UnknownLocation, first.Location)

	second := stats.ClickDetails[1]
	assert.Equal(t, "unknown", second.IP)
	assert.Equal(t, "unknown", second.UserAgent)
	assert.Equal(t, "direct", second.Referrer)

	assert.Equal(t, 1, metrics.created)
	assert.Equal(t, 2, metrics.outcomes[OutcomeRedirected])
}

func TestLinkService_Resolve_Expired(t *testing.T) {
	clock := newFakeClock()
	svc := newTestService(t, clock)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(1)})
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = svc.Resolve(ctx, link.Code, ClientInfo{})
	require.NoError(t, err, "link must be reachable at its exact expiry instant")

	clock.Advance(time.Second)
	_, err = svc.Resolve(ctx, link.Code, ClientInfo{})
	assert.ErrorIs(t, err, ErrLinkExpired)

	_, err = svc.Resolve(ctx, link.Code, ClientInfo{})
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StoreCounts{}, counts)
}

func TestLinkService_GetStats_Expired(t *testing.T) {
	clock := newFakeClock()
	svc := newTestService(t, clock)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(1)})
	require.NoError(t, err)

	clock.Advance(61 * time.Second)
	_, err = svc.GetStats(ctx, link.Code)
	assert.ErrorIs(t, err, ErrLinkExpired)

	_, err = svc.GetStats(ctx, link.Code)
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
}

func TestLinkService_GetStats_Summary(t *testing.T) {
	clock := newFakeClock()
	svc := newTestService(t, clock)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(525600)})
	require.NoError(t, err)

	for _, ref := range []string{"b.example", "a.example", "a.example", "", "b.example"} {
		_, err := svc.Resolve(ctx, link.Code, ClientInfo{Referrer: ref})
		require.NoError(t, err)
	}

	clock.Advance(50 * time.Hour)
	stats, err := svc.GetStats(ctx, link.Code)
	require.NoError(t, err)

	assert.False(t, stats.IsExpired)
	assert.Equal(t, 5, stats.TotalClicks)
	assert.Equal(t, 2.5, stats.Summary.AverageClicksPerDay)
	assert.Equal(t, []model.ReferrerCount{
		{Referrer: "b.example", Count: 2},
		{Referrer: "a.example", Count: 2},
		{Referrer: "direct", Count: 1},
	}, stats.Summary.TopReferrers)
	assert.Equal(t, []model.LocationCount{{Location: model.UnknownLocation, Count: 5}}, stats.Summary.TopLocations)
}

func TestLinkService_Resolve_PublishesClick(t *testing.T) {
	publisher := &chanPublisher{events: make(chan model.ClickEvent, 1)}
	svc := newTestService(t, newFakeClock(), func(d *LinkServiceDeps) { d.Publisher = publisher })
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com"})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, link.Code, ClientInfo{IP: "198.51.100.20"})
	require.NoError(t, err)

	select {
	case event := <-publisher.events:
		assert.Equal(t, link.Code, event.LinkCode)
		assert.Equal(t, "198.51.100.xxx", event.IP)
		assert.NotEmpty(t, event.ID)
	case <-time.After(time.Second):
		t.Fatal("click event was not published")
	}
}

func TestLinkService_SweepExpired(t *testing.T) {
	clock := newFakeClock()
	archive := &fakeArchive{}
	metrics := newRecordingMetrics()
	svc := newTestService(t, clock, func(d *LinkServiceDeps) {
		d.Archive = archive
		d.Metrics = metrics
	})
	ctx := context.Background()

	short, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com/short", ValidityMinutes: intPtr(1)})
	require.NoError(t, err)
	long, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com/long", ValidityMinutes: intPtr(10)})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, short.Code, ClientInfo{})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	removed, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = svc.Resolve(ctx, short.Code, ClientInfo{})
	assert.ErrorIs(t, err, repository.ErrLinkNotFound)
	_, err = svc.Resolve(ctx, long.Code, ClientInfo{})
	assert.NoError(t, err)

	require.Len(t, archive.rows, 1)
	assert.Equal(t, short.Code, archive.rows[0].Code)
	assert.Equal(t, 1, archive.rows[0].Clicks)
	assert.Equal(t, clock.Now(), archive.rows[0].SweptAt)

	assert.Equal(t, 1, metrics.swept)
	assert.Equal(t, 1, metrics.active)

	removed, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestLinkService_SweepExpired_ArchiveError(t *testing.T) {
	clock := newFakeClock()
	archive := &fakeArchive{err: errors.New("disk full")}
	svc := newTestService(t, clock, func(d *LinkServiceDeps) { d.Archive = archive })
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com", ValidityMinutes: intPtr(1)})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	removed, err := svc.SweepExpired(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, removed)
}
