// Package storage writes extracted text to the record store and keeps the
// extraction history.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/textextract/backend/internal/models"
)

// Persister defines the interface for record store writes.
type Persister interface {
	// Persist stores text on the record identified by recordID. It returns
	// nil or a *models.PipelineError of kind ErrPersistence.
	Persist(ctx context.Context, recordID, text string, status models.Status) error
}

const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Target names the table and columns written by every persister.
type Target struct {
	Table        string
	IDColumn     string
	TextColumn   string
	StatusColumn string // optional
}

// DefaultTarget is the song script table used by the lyrics application.
func DefaultTarget() Target {
	return Target{Table: "song_scripts", IDColumn: "id", TextColumn: "content"}
}

func (t Target) withDefaults() Target {
	def := DefaultTarget()
	if t.Table == "" {
		t.Table = def.Table
	}
	if t.IDColumn == "" {
		t.IDColumn = def.IDColumn
	}
	if t.TextColumn == "" {
		t.TextColumn = def.TextColumn
	}
	return t
}

// Options selects and configures a persister.
type Options struct {
	Driver      string
	Target      Target
	Timeout     time.Duration
	RESTURL     string
	ServiceKey  string
	DatabaseURL string
}

// NewPersister builds the persister for opts.Driver. The returned close
// function releases its resources and is never nil.
func NewPersister(ctx context.Context, opts Options, logger *slog.Logger) (Persister, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}

	switch strings.ToLower(opts.Driver) {
	case DriverREST, "":
		p, err := NewRESTPersister(RESTOptions{
			BaseURL:    opts.RESTURL,
			ServiceKey: opts.ServiceKey,
			Target:     opts.Target,
			Timeout:    opts.Timeout,
		}, logger)
		if err != nil {
			return nil, noop, err
		}
		return p, noop, nil
	case DriverPostgres:
		p, err := OpenPostgresPersister(ctx, opts.DatabaseURL, opts.Target, opts.Timeout, logger)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	case DriverNone:
		logger.Warn("record store disabled; extracted text will not be persisted")
		return DisabledPersister{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// DisabledPersister rejects every write.
type DisabledPersister struct{}

func (DisabledPersister) Persist(context.Context, string, string, models.Status) error {
	return models.NewPersistenceError("record store is not configured", nil)
}
