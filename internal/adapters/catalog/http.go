package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
	"github.com/okian/scorekeep/pkg/metrics"
)

// Default catalog configuration constants.
const (
	DefaultURL     = "https://jritsqmet.github.io/web-api/videojuegos.json"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// HTTPSource fetches the catalog document once and keeps the first
// successful result. Failures are not cached.
type HTTPSource struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger

	group singleflight.Group

	mu      sync.RWMutex
	entries []model.GameCatalogEntry
	loaded  bool
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a source for url with configuration options.
func NewHTTPSource(url string, opts ...Option) *HTTPSource {
	if url == "" {
		url = DefaultURL
	}
	s := &HTTPSource{
		url:     url,
		client:  http.DefaultClient,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("catalog")
	}
	return s
}

// Fetch implements Source. Concurrent callers share one request.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.GameCatalogEntry, error) {
	if entries, ok := s.cached(); ok {
		return entries, nil
	}

	ch := s.group.DoChan("catalog", func() (any, error) {
		if entries, ok := s.cached(); ok {
			return entries, nil
		}
		// Detached so one caller giving up does not fail the others.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		entries, err := s.fetch(fctx)
		if err != nil {
			metrics.RecordCatalogFetch(metrics.OutcomeFailure)
			s.logger.Warn(ctx, "catalog fetch failed", logger.String("url", s.url), logger.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
		metrics.RecordCatalogFetch(metrics.OutcomeSuccess)
		metrics.UpdateCatalogSize(len(entries))

		s.mu.Lock()
		s.entries = entries
		s.loaded = true
		s.mu.Unlock()
		s.logger.Info(ctx, "catalog loaded", logger.Int("entries", len(entries)))
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		entries, _ := res.Val.([]model.GameCatalogEntry)
		return clone(entries), nil
	}
}

// Len returns the number of cached entries, 0 before the first success.
func (s *HTTPSource) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *HTTPSource) cached() ([]model.GameCatalogEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return nil, false
	}
	return clone(s.entries), true
}

func (s *HTTPSource) fetch(ctx context.Context) ([]model.GameCatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Decode(body)
}

// Decode parses the catalog document. Entries without an id or title are
// skipped; a negative price is treated as zero.
func Decode(body []byte) ([]model.GameCatalogEntry, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid catalog json")
	}
	list := gjson.GetBytes(body, "videojuegos")
	if !list.IsArray() {
		return nil, fmt.Errorf("catalog document has no videojuegos array")
	}

	items := list.Array()
	out := make([]model.GameCatalogEntry, 0, len(items))
	for _, item := range items {
		id := item.Get("id").String()
		title := item.Get("titulo").String()
		if id == "" || title == "" {
			continue
		}
		price := item.Get("precio").Float()
		if price < 0 {
			price = 0
		}
		out = append(out, model.GameCatalogEntry{
			ID:        id,
			Title:     title,
			ImageURI:  item.Get("imagen").String(),
			Price:     price,
			Platforms: platforms(item.Get("plataforma")),
		})
	}
	return out, nil
}

func platforms(v gjson.Result) []string {
	if v.IsArray() {
		out := make([]string, 0, len(v.Array()))
		for _, p := range v.Array() {
			if s := p.String(); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := v.String(); s != "" {
		return []string{s}
	}
	return []string{}
}
