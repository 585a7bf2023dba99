package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/textextract/backend/internal/models"
)

// execer is the subset of *pgxpool.Pool used for updates.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresPersister updates the record table directly in PostgreSQL.
type PostgresPersister struct {
	db      execer
	pool    *pgxpool.Pool
	sql     string
	status  bool
	timeout time.Duration
	logger  *slog.Logger
}

// OpenPostgresPersister connects a pool to dsn and verifies it with a ping.
func OpenPostgresPersister(ctx context.Context, dsn string, target Target, timeout time.Duration, logger *slog.Logger) (*PostgresPersister, error) {
	if dsn == "" {
		return nil, errors.New("database URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "textextract"

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	p := newPostgresPersister(pool, target, timeout, logger)
	p.pool = pool
	p.logger.Info("connected to record database", "table", target.withDefaults().Table)
	return p, nil
}

func newPostgresPersister(db execer, target Target, timeout time.Duration, logger *slog.Logger) *PostgresPersister {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sql, withStatus := updateStatement(target.withDefaults())
	return &PostgresPersister{
		db:      db,
		sql:     sql,
		status:  withStatus,
		timeout: timeout,
		logger:  logger.With("component", "postgres_persister"),
	}
}

// updateStatement builds the UPDATE with quoted identifiers: $1 text, $2 id, $3 status.
func updateStatement(t Target) (string, bool) {
	set := fmt.Sprintf("%s = $1", pgx.Identifier{t.TextColumn}.Sanitize())
	if t.StatusColumn != "" {
		set += fmt.Sprintf(", %s = $3", pgx.Identifier{t.StatusColumn}.Sanitize())
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $2",
		pgx.Identifier{t.Table}.Sanitize(), set, pgx.Identifier{t.IDColumn}.Sanitize()), t.StatusColumn != ""
}

func (p *PostgresPersister) Persist(ctx context.Context, recordID, text string, status models.Status) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := []any{text, recordID}
	if p.status {
		args = append(args, string(status))
	}

	tag, err := p.db.Exec(ctx, p.sql, args...)
	if err != nil {
		return models.NewPersistenceError("updating record", err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewPersistenceError(fmt.Sprintf("record %q not found", recordID), nil)
	}
	p.logger.Debug("record updated", "record_id", recordID)
	return nil
}

// Close releases the connection pool.
func (p *PostgresPersister) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
