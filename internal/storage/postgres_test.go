package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/textextract/backend/internal/models"
)

type fakeExecer struct {
	sql  string
	args []any
	tag  pgconn.CommandTag
	err  error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return f.tag, f.err
}

func TestUpdateStatement(t *testing.T) {
	sql, withStatus := updateStatement(DefaultTarget())
	assert.Equal(t, `UPDATE "song_scripts" SET "content" = $1 WHERE "id" = $2`, sql)
	assert.False(t, withStatus)

	sql, withStatus = updateStatement(Target{Table: "docs", IDColumn: "doc_id", TextColumn: "body", StatusColumn: "state"})
	assert.Equal(t, `UPDATE "docs" SET "body" = $1, "state" = $3 WHERE "doc_id" = $2`, sql)
	assert.True(t, withStatus)
}

func TestUpdateStatement_QuotesIdentifiers(t *testing.T) {
	sql, _ := updateStatement(Target{Table: `evil"; DROP TABLE x; --`, IDColumn: "id", TextColumn: "content"})
	assert.Contains(t, sql, `"evil""; DROP TABLE x; --"`)
}

func TestPostgresPersister_Persist(t *testing.T) {
	db := &fakeExecer{tag: pgconn.NewCommandTag("UPDATE 1")}
	p := newPostgresPersister(db, DefaultTarget(), 0, nil)

	require.NoError(t, p.Persist(context.Background(), "s1", "hello", models.StatusSuccess))
	assert.Equal(t, []any{"hello", "s1"}, db.args)
}

func TestPostgresPersister_WithStatus(t *testing.T) {
	db := &fakeExecer{tag: pgconn.NewCommandTag("UPDATE 1")}
	target := DefaultTarget()
	target.StatusColumn = "extraction_status"
	p := newPostgresPersister(db, target, 0, nil)

	require.NoError(t, p.Persist(context.Background(), "s1", "hello", models.StatusPartial))
	assert.Equal(t, []any{"hello", "s1", "partial"}, db.args)
}

func TestPostgresPersister_Failures(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		p := newPostgresPersister(&fakeExecer{tag: pgconn.NewCommandTag("UPDATE 0")}, DefaultTarget(), 0, nil)
		err := p.Persist(context.Background(), "missing", "x", models.StatusSuccess)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrPersistence))
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("exec error", func(t *testing.T) {
		cause := errors.New("connection reset")
		p := newPostgresPersister(&fakeExecer{err: cause}, DefaultTarget(), 0, nil)
		err := p.Persist(context.Background(), "s1", "x", models.StatusSuccess)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrPersistence))
		assert.True(t, errors.Is(err, cause))
	})
}

func TestOpenPostgresPersister_RequiresDSN(t *testing.T) {
	_, err := OpenPostgresPersister(context.Background(), "", DefaultTarget(), 0, nil)
	assert.Error(t, err)
}
