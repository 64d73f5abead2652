package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/emitto/internal/common"
	"github.com/ternarybob/emitto/internal/interfaces"
	"github.com/ternarybob/emitto/internal/models"
	"github.com/ternarybob/emitto/internal/services/imagegen"
	"github.com/ternarybob/emitto/internal/services/scraper"
)

type stubSitemap struct {
	urls map[string][]string
	err  error
}

func (s *stubSitemap) FetchURLs(_ context.Context, source *models.Source) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.urls[source.Name], nil
}

type stubScraper struct {
	failing map[string]bool
}

func (s *stubScraper) ScrapeAll(_ context.Context, urls []string) *scraper.BatchResult {
	result := &scraper.BatchResult{}
	for _, u := range urls {
		if s.failing[u] {
			result.Errors = append(result.Errors, scraper.URLError{URL: u, Error: fmt.Errorf("extraction failed")})
			continue
		}
		result.Articles = append(result.Articles, &models.Article{
			URL:      u,
			Title:    "Title for " + u,
			Markdown: "# Heading\n\nBody.",
			Source:   "api",
		})
	}
	result.Stats.TotalURLs = len(urls)
	result.Stats.SuccessCount = len(result.Articles)
	result.Stats.ErrorCount = len(result.Errors)
	return result
}

type stubOptimizer struct {
	err   error
	calls int
}

func (s *stubOptimizer) Optimize(_ context.Context, article *models.Article) (*models.OptimizedContent, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.OptimizedContent{
		Caption:  "Caption for " + article.URL,
		Hashtags: []string{"#tag"},
		AltText:  "An image",
	}, nil
}

type stubImages struct {
	enabled bool
	err     error
}

func (s *stubImages) Enabled() bool { return s.enabled }

func (s *stubImages) Generate(_ context.Context, prompt string) (*imagegen.GeneratedImage, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &imagegen.GeneratedImage{Data: []byte{1, 2, 3}, MIMEType: "image/png", Model: "test-model", Prompt: prompt}, nil
}

type stubPublisher struct {
	err       error
	published []*models.Post
}

func (s *stubPublisher) Publish(_ context.Context, post *models.Post, image []byte, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, post)
	return nil
}

type memoryPosts struct {
	mu    sync.Mutex
	posts map[string]*models.Post
}

func newMemoryPosts() *memoryPosts { return &memoryPosts{posts: make(map[string]*models.Post)} }

func (m *memoryPosts) SavePost(_ context.Context, post *models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *post
	m.posts[post.ID] = &clone
	return nil
}

func (m *memoryPosts) GetPost(_ context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if post, ok := m.posts[id]; ok {
		clone := *post
		return &clone, nil
	}
	return nil, interfaces.ErrPostNotFound
}

func (m *memoryPosts) PatchPost(_ context.Context, id string, patch *models.PostPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return interfaces.ErrPostNotFound
	}
	patch.Apply(post)
	return nil
}

func (m *memoryPosts) ListPosts(_ context.Context, _ *interfaces.PostListOptions) ([]*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for _, post := range m.posts {
		clone := *post
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memoryPosts) GetScheduledTimes(_ context.Context, _ int) ([]time.Time, error) {
	return nil, nil
}

func (m *memoryPosts) GetPostBySourceURL(_ context.Context, sourceURL string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, post := range m.posts {
		if post.SourceURL == sourceURL {
			clone := *post
			return &clone, nil
		}
	}
	return nil, interfaces.ErrPostNotFound
}

func (m *memoryPosts) byStatus(status models.PostStatus) []*models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Post
	for _, post := range m.posts {
		if post.Status == status {
			clone := *post
			out = append(out, &clone)
		}
	}
	return out
}

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryKV() *memoryKV { return &memoryKV{data: make(map[string]string)} }

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", interfaces.ErrKeyNotFound
}

func (m *memoryKV) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func writeSourcesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := `sources:
  - name: blog
    sitemap_url: https://example.com/sitemap.xml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type testPipeline struct {
	svc       *Service
	sitemap   *stubSitemap
	optimizer *stubOptimizer
	images    *stubImages
	publisher *stubPublisher
	posts     *memoryPosts
	cache     *memoryKV
}

func newTestPipeline(t *testing.T, urls []string) *testPipeline {
	t.Helper()

	config := common.NewDefaultConfig()
	config.Pipeline.SourcesFile = writeSourcesFile(t)
	config.Pipeline.MaxItems = 10
	config.Pipeline.ItemDelay = 0
	config.Publisher.Platform = "instagram"

	tp := &testPipeline{
		sitemap:   &stubSitemap{urls: map[string][]string{"blog": urls}},
		optimizer: &stubOptimizer{},
		images:    &stubImages{},
		publisher: &stubPublisher{},
		posts:     newMemoryPosts(),
		cache:     newMemoryKV(),
	}
	tp.svc = NewService(config, tp.sitemap, &stubScraper{}, tp.optimizer, tp.images, tp.publisher,
		tp.posts, tp.cache, common.GetLogger())
	return tp
}

func TestRunSchedulesEachURL(t *testing.T) {
	tp := newTestPipeline(t, []string{"https://example.com/a", "https://example.com/b"})

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.URLsFound)
	assert.Equal(t, 2, result.Scraped)
	assert.Equal(t, 2, result.Scheduled)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, tp.publisher.published, 2)

	// Processed URLs are cached for the next run
	_, err = tp.cache.Get(context.Background(), "processed:https://example.com/a")
	assert.NoError(t, err)
}

func TestRunSkipsCachedURLs(t *testing.T) {
	tp := newTestPipeline(t, []string{"https://example.com/a", "https://example.com/b"})
	require.NoError(t, tp.cache.Set(context.Background(), "processed:https://example.com/a", "done", 0))

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Scheduled)
	assert.Len(t, tp.publisher.published, 1)
	assert.Equal(t, "https://example.com/b", tp.publisher.published[0].SourceURL)
}

func TestRunSkipsURLsWithExistingPosts(t *testing.T) {
	tp := newTestPipeline(t, []string{"https://example.com/a"})
	require.NoError(t, tp.posts.SavePost(context.Background(), &models.Post{
		ID:        "post_existing",
		SourceURL: "https://example.com/a",
		Platform:  "instagram",
		Status:    models.PostStatusPublished,
	}))

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Scheduled)
	assert.Equal(t, 0, tp.optimizer.calls)
}

func TestRunHonorsMaxItems(t *testing.T) {
	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://example.com/%d", i)
	}
	tp := newTestPipeline(t, urls)
	tp.svc.config.Pipeline.MaxItems = 2

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Scheduled)
}

func TestRunMarksOptimizerFailureAsFailed(t *testing.T) {
	tp := newTestPipeline(t, []string{"https://example.com/a"})
	tp.optimizer.err = fmt.Errorf("model overloaded")

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Scheduled)
	assert.Equal(t, 1, result.Failed)

	failed := tp.posts.byStatus(models.PostStatusFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "model overloaded")

	// A failed URL is not cached; the next run retries it
	_, err = tp.cache.Get(context.Background(), "processed:https://example.com/a")
	assert.ErrorIs(t, err, interfaces.ErrKeyNotFound)
}

func TestRunMarksPublishFailureAsFailed(t *testing.T) {
	tp := newTestPipeline(t, []string{"https://example.com/a"})
	tp.publisher.err = fmt.Errorf("scheduling API down")

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	failed := tp.posts.byStatus(models.PostStatusFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Error, "scheduling API down")
}

func TestRunImageFailureDoesNotSinkPost(t *testing.T) {
	tp := newTestPipeline(t, []string{"https://example.com/a"})
	tp.images.enabled = true
	tp.images.err = fmt.Errorf("image API down")

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Scheduled)
	assert.Equal(t, 0, result.Failed)
}

func TestRunDryRunLeavesDrafts(t *testing.T) {
	tp := newTestPipeline(t, []string{"https://example.com/a"})
	tp.svc.config.Pipeline.DryRun = true

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Scheduled)
	assert.Empty(t, tp.publisher.published)
	drafts := tp.posts.byStatus(models.PostStatusDraft)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Caption for https://example.com/a", drafts[0].Caption)
}

func TestRunContinuesWhenSourceFails(t *testing.T) {
	tp := newTestPipeline(t, nil)
	tp.sitemap.err = fmt.Errorf("sitemap unreachable")

	result, err := tp.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.URLsFound)
	assert.Equal(t, 0, result.Scheduled)
}
