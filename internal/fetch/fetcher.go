// Package fetch retrieves documents from public HTTP(S) URLs.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/textextract/backend/internal/models"
)

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBytes  = 50 << 20
	DefaultUserAgent = "textextract/1.0"
)

// Options bounds a single fetch.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// HTTPFetcher downloads documents with a plain GET. It never retries.
type HTTPFetcher struct {
	client *http.Client
	opts   Options
	logger *slog.Logger
}

// NewHTTPFetcher creates a fetcher. Zero option values fall back to the defaults.
func NewHTTPFetcher(opts Options, logger *slog.Logger) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		logger: logger.With("component", "fetcher"),
	}
}

// Fetch returns the body of documentURL. Every failure is a *models.PipelineError
// of kind ErrFetch; cancellation of ctx is preserved in its cause.
func (f *HTTPFetcher) Fetch(ctx context.Context, documentURL string) ([]byte, error) {
	u, err := url.Parse(documentURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, models.NewFetchError("document URL must be an absolute http(s) URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, models.NewFetchError("building request", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, models.NewFetchError("request cancelled", errors.Join(ctxErr, err))
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Timeout() {
			return nil, models.NewFetchError(fmt.Sprintf("timed out after %s", f.opts.Timeout), err)
		}
		return nil, models.NewFetchError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, models.NewFetchError(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	if resp.ContentLength > f.opts.MaxBytes {
		return nil, models.NewFetchError(
			fmt.Sprintf("document is %d bytes, limit is %d", resp.ContentLength, f.opts.MaxBytes), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, models.NewFetchError("request cancelled", errors.Join(ctxErr, err))
		}
		return nil, models.NewFetchError("reading body", err)
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, models.NewFetchError(fmt.Sprintf("document exceeds %d bytes", f.opts.MaxBytes), nil)
	}

	f.logger.Debug("document fetched",
		"host", u.Host,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}
