package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/pkg/logger"
)

// Client talks to the scorekeep HTTP API as one owner.
type Client struct {
	baseURL    string
	token      string
	client     *http.Client
	maxRetries uint
}

// NewClient creates a client sending token as the bearer credential.
func NewClient(baseURL, token string, timeout time.Duration, maxRetries uint) *Client {
	if maxRetries == 0 {
		maxRetries = 1
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		client:     &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

type response struct {
	status int
	body   []byte
}

// do sends one request, retrying on transport errors, 429 and 5xx.
func (c *Client) do(ctx context.Context, method, path string, body []byte, header http.Header) (response, error) {
	op := func() (response, error) {
		var rdr io.Reader = http.NoBody
		if body != nil {
			rdr = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
		if err != nil {
			return response{}, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return response{}, err
		}
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return response{}, err
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After"))
			if convErr != nil || secs <= 0 {
				secs = 1
			}
			return response{}, backoff.RetryAfter(secs)
		case resp.StatusCode >= http.StatusInternalServerError:
			return response{}, fmt.Errorf("%w: %d %s", ErrUnexpectedCode, resp.StatusCode, bytes.TrimSpace(data))
		}
		return response{status: resp.StatusCode, body: data}, nil
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxRetries),
	)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	res, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	if res.status != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrUnexpectedCode, path, res.status)
	}
	if v == nil {
		return nil
	}
	return json.Unmarshal(res.body, v)
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "/healthz", nil)
}

// Catalog returns every game in GET /catalog.
func (c *Client) Catalog(ctx context.Context) ([]model.GameCatalogEntry, error) {
	var body struct {
		Games []model.GameCatalogEntry `json:"games"`
	}
	if err := c.getJSON(ctx, "/catalog", &body); err != nil {
		return nil, err
	}
	return body.Games, nil
}

// Statistics returns the owner's current statistics from GET /scores.
func (c *Client) Statistics(ctx context.Context) (model.Statistics, error) {
	var body struct {
		Statistics model.Statistics `json:"statistics"`
	}
	if err := c.getJSON(ctx, "/scores", &body); err != nil {
		return model.Statistics{}, err
	}
	return body.Statistics, nil
}

// Submit posts one score and reports created, duplicate or failed.
func (c *Client) Submit(ctx context.Context, s Score) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return resultFailed, fmt.Errorf("failed to marshal score: %w", err)
	}
	header := http.Header{}
	if s.IdempotencyKey != "" {
		header.Set("Idempotency-Key", s.IdempotencyKey)
	}

	res, err := c.do(ctx, http.MethodPost, "/scores", payload, header)
	if err != nil {
		return resultFailed, err
	}
	switch res.status {
	case http.StatusCreated:
		return resultCreated, nil
	case http.StatusOK:
		return resultDuplicate, nil
	default:
		return resultFailed, fmt.Errorf("%w: POST /scores returned %d %s", ErrUnexpectedCode, res.status, bytes.TrimSpace(res.body))
	}
}

// submitScores submits scores concurrently using a worker pool.
func submitScores(ctx context.Context, config *Config, client *Client, scores []Score, stats *Stats) {
	l := logger.Get().Named("seed")
	l.Info(ctx, "submitting scores", logger.Int("scores", len(scores)), logger.Int("workers", config.Workers))

	var created, duplicate, failed int64

	workers := max(config.Workers, 1)
	scoreChan := make(chan Score, workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range scoreChan {
				result, err := client.Submit(ctx, s)
				switch result {
				case resultCreated:
					atomic.AddInt64(&created, 1)
				case resultDuplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
					l.Warn(ctx, "score submission failed", logger.String("game", s.GameID), logger.Error(err))
				}
			}
		}()
	}

	func() {
		defer close(scoreChan)
		for _, s := range scores {
			select {
			case <-ctx.Done():
				return
			case scoreChan <- s:
			}
		}
	}()
	wg.Wait()

	stats.Created = int(atomic.LoadInt64(&created))
	stats.Duplicate = int(atomic.LoadInt64(&duplicate))
	stats.Failed = int(atomic.LoadInt64(&failed))
	stats.Failed += len(scores) - stats.Created - stats.Duplicate - stats.Failed

	l.Info(ctx, "score submission completed",
		logger.Int("created", stats.Created),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("failed", stats.Failed))
}
