package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/aveforge-dashboard/internal/domain"
	"github.com/aveforge-dashboard/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	selectBody     = regexp.QuoteMeta(`SELECT body::text FROM stats_documents WHERE name = $1`)
	selectRevision = regexp.QuoteMeta(`SELECT revision::text FROM stats_documents WHERE name = $1`)
	upsert         = regexp.QuoteMeta(`INSERT INTO stats_documents (name, body, revision, updated_at)`)
)

func newTestSource(t *testing.T) (*Source, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewSourceFromPool(mock, slog.New(slog.NewTextHandler(io.Discard, nil))), mock
}

func TestRunMigrations(t *testing.T) {
	src, mock := newTestSource(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS stats_documents")).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, src.RunMigrations(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceReadDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("existing row", func(t *testing.T) {
		src, mock := newTestSource(t)
		mock.ExpectQuery(selectBody).
			WithArgs("players").
			WillReturnRows(pgxmock.NewRows([]string{"body"}).AddRow(`[]`))

		data, err := src.ReadDocument(ctx, store.PlayersDocument)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(data))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		src, mock := newTestSource(t)
		mock.ExpectQuery(selectBody).
			WithArgs("metrics").
			WillReturnError(pgx.ErrNoRows)

		_, err := src.ReadDocument(ctx, store.MetricsDocument)
		assert.ErrorIs(t, err, ErrDocumentMissing)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		src, mock := newTestSource(t)
		mock.ExpectQuery(selectBody).
			WithArgs("players").
			WillReturnError(errors.New("connection refused"))

		_, err := src.ReadDocument(ctx, store.PlayersDocument)
		assert.ErrorContains(t, err, "getting document")
		assert.NotErrorIs(t, err, ErrDocumentMissing)
	})
}

func TestSourceWriteDocument(t *testing.T) {
	src, mock := newTestSource(t)

	mock.ExpectExec(upsert).
		WithArgs("players", `[]`, "rev-1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, src.WriteDocument(context.Background(), store.PlayersDocument, []byte(`[]`), "rev-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceWriteDocuments(t *testing.T) {
	docs := map[store.Document][]byte{
		store.PlayersDocument: []byte(`[]`),
		store.MetricsDocument: []byte(`{"updatedAt": "2025-06-14T12:00:00Z"}`),
	}

	t.Run("commits both", func(t *testing.T) {
		src, mock := newTestSource(t)
		mock.ExpectBegin()
		mock.ExpectExec(upsert).
			WithArgs("players", `[]`, "rev-2", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(upsert).
			WithArgs("metrics", `{"updatedAt": "2025-06-14T12:00:00Z"}`, "rev-2", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, src.WriteDocuments(context.Background(), docs, "rev-2"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		src, mock := newTestSource(t)
		mock.ExpectBegin()
		mock.ExpectExec(upsert).
			WithArgs("players", `[]`, "rev-3", pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(upsert).
			WithArgs("metrics", pgxmock.AnyArg(), "rev-3", pgxmock.AnyArg()).
			WillReturnError(errors.New("deadlock detected"))
		mock.ExpectRollback()

		err := src.WriteDocuments(context.Background(), docs, "rev-3")
		assert.ErrorContains(t, err, "upserting metrics document")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSourceRevision(t *testing.T) {
	src, mock := newTestSource(t)
	ctx := context.Background()

	mock.ExpectQuery(selectRevision).
		WithArgs("players").
		WillReturnRows(pgxmock.NewRows([]string{"revision"}).AddRow("rev-4"))
	mock.ExpectQuery(selectRevision).
		WithArgs("metrics").
		WillReturnError(pgx.ErrNoRows)

	rev, err := src.Revision(ctx, store.PlayersDocument)
	require.NoError(t, err)
	assert.Equal(t, "rev-4", rev)

	_, err = src.Revision(ctx, store.MetricsDocument)
	assert.ErrorIs(t, err, ErrDocumentMissing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceBehindStore(t *testing.T) {
	src, mock := newTestSource(t)
	s := store.New(src, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mock.ExpectQuery(selectBody).
		WithArgs("metrics").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Metrics(context.Background())
	assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.ErrorIs(t, err, ErrDocumentMissing)
}
