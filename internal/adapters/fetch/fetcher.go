// Package fetch implements the HTTP artifact fetcher. Downloads are
// verified against their expected content hash before they are returned,
// and concurrent requests for the same hash collapse into one download.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.trai.ch/pakt/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 250 * time.Millisecond
)

// Fetcher is an HTTP-backed ports.ArtifactFetcher with bounded
// exponential backoff on transient failures.
type Fetcher struct {
	client      *http.Client
	maxAttempts int
	baseDelay   time.Duration
	group       singleflight.Group
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient replaces the HTTP client, mainly for tests.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithRetry overrides the retry schedule.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(f *Fetcher) {
		f.maxAttempts = maxAttempts
		f.baseDelay = baseDelay
	}
}

// New creates a Fetcher with sane defaults.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:      &http.Client{Timeout: 5 * time.Minute},
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url and verifies the bytes hash to expectedHash.
// Concurrent calls with the same hash share one download; retries apply
// to network errors and 5xx responses, while 4xx responses fail fast.
func (f *Fetcher) Fetch(ctx context.Context, url, expectedHash string) ([]byte, error) {
	v, err, _ := f.group.Do(expectedHash, func() (any, error) {
		// The flight is shared with later callers, so it must not die
		// with whichever caller happened to start it. The client timeout
		// still bounds the download.
		return f.fetchVerified(context.WithoutCancel(ctx), url, expectedHash)
	})
	if err != nil {
		return nil, err
	}
	data, ok := v.([]byte)
	if !ok {
		return nil, domain.ErrFetchFailed
	}
	return data, nil
}

func (f *Fetcher) fetchVerified(ctx context.Context, url, expectedHash string) ([]byte, error) {
	data, err := f.download(ctx, url)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	if actual := hex.EncodeToString(sum[:]); actual != expectedHash {
		err := zerr.With(domain.ErrIntegrityMismatch, "url", url)
		err = zerr.With(err, "expected", expectedHash)
		return nil, zerr.With(err, "actual", actual)
	}
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		if attempt > 0 {
			// Exponential backoff: base, 2*base, 4*base, ...
			delay := f.baseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		data, retryable, err := f.attempt(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return nil, zerr.With(zerr.Wrap(lastErr, domain.ErrFetchFailed.Error()), "url", url)
}

// attempt performs a single GET. The second return reports whether the
// failure is worth retrying.
func (f *Fetcher) attempt(ctx context.Context, url string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, true, err
		}
		return body, false, nil
	case resp.StatusCode >= 500:
		return nil, true, zerr.With(domain.ErrFetchFailed, "status", strconv.Itoa(resp.StatusCode))
	default:
		return nil, false, zerr.With(domain.ErrFetchFailed, "status", strconv.Itoa(resp.StatusCode))
	}
}
