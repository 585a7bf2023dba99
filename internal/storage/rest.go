package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/textextract/backend/internal/models"
)

const maxRESTResponseBytes = 1 << 20

// RESTOptions configures a PostgREST-compatible record store (e.g. Supabase).
type RESTOptions struct {
	BaseURL    string
	ServiceKey string
	Target     Target
	Timeout    time.Duration
}

// RESTPersister updates records with PATCH /rest/v1/{table}?{id}=eq.{recordID}.
type RESTPersister struct {
	client   *http.Client
	endpoint string
	key      string
	target   Target
	logger   *slog.Logger
}

func NewRESTPersister(opts RESTOptions, logger *slog.Logger) (*RESTPersister, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("record store URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid record store URL %q", opts.BaseURL)
	}
	if opts.ServiceKey == "" {
		return nil, errors.New("record store service key is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	target := opts.Target.withDefaults()
	return &RESTPersister{
		client:   &http.Client{Timeout: opts.Timeout},
		endpoint: base + "/rest/v1/" + url.PathEscape(target.Table),
		key:      opts.ServiceKey,
		target:   target,
		logger:   logger.With("component", "rest_persister"),
	}, nil
}

func (p *RESTPersister) Persist(ctx context.Context, recordID, text string, status models.Status) error {
	fields := map[string]any{p.target.TextColumn: text}
	if p.target.StatusColumn != "" {
		fields[p.target.StatusColumn] = string(status)
	}
	body, err := json.Marshal(fields)
	if err != nil {
		return models.NewPersistenceError("encoding update", err)
	}

	query := url.Values{}
	query.Set(p.target.IDColumn, "eq."+recordID)
	// Only the key comes back, so the reply size does not track the text size.
	query.Set("select", p.target.IDColumn)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, p.endpoint+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return models.NewPersistenceError("building update request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", p.key)
	req.Header.Set("Authorization", "Bearer "+p.key)
	req.Header.Set("Prefer", "return=representation")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return models.NewPersistenceError("record store request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxRESTResponseBytes+1))
	if err != nil {
		return models.NewPersistenceError("reading record store response", err)
	}
	truncated := len(raw) > maxRESTResponseBytes
	if truncated {
		raw = raw[:maxRESTResponseBytes]
	}

	p.logger.Debug("record store update",
		"record_id", recordID,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		var cause error
		if detail := strings.TrimSpace(string(raw)); detail != "" {
			cause = errors.New(detail)
		}
		return models.NewPersistenceError(fmt.Sprintf("record store returned status %d", resp.StatusCode), cause)
	}

	// 204 means the server ignored the representation preference; trust the status.
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if truncated {
		return models.NewPersistenceError(fmt.Sprintf("record store response exceeds %d bytes", maxRESTResponseBytes), nil)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return models.NewPersistenceError("decoding record store response", err)
	}
	if len(rows) == 0 {
		return models.NewPersistenceError(fmt.Sprintf("record %q not found", recordID), nil)
	}
	return nil
}
