package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/yaxxsin/task-management-prod-sub001/internal/errs"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

func TestStateRepo_Get_OK(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStateRepo(db)

	ts := time.Now().UTC()
	doc := json.RawMessage(`{"state":{}}`)

	mock.ExpectQuery(`SELECT key, document, created_at, updated_at\s+FROM state_blobs WHERE key=\$1`).
		WithArgs("board").
		WillReturnRows(pgxmock.NewRows([]string{"key", "document", "created_at", "updated_at"}).
			AddRow("board", []byte(doc), ts, ts))

	b, err := r.Get(context.Background(), "board")
	require.NoError(t, err)
	require.Equal(t, "board", b.Key)
	require.JSONEq(t, string(doc), string(b.Document))
}

func TestStateRepo_Get_NotFound(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStateRepo(db)

	mock.ExpectQuery(`SELECT key, document, created_at, updated_at\s+FROM state_blobs WHERE key=\$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := r.Get(context.Background(), "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStateRepo_Set_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStateRepo(db)

	doc := json.RawMessage(`{"state":{"tasks":[]}}`)
	mock.ExpectExec(`INSERT INTO state_blobs \(key, document, created_at, updated_at\)\s+VALUES \(\$1, \$2, now\(\), now\(\)\)\s+ON CONFLICT \(key\) DO UPDATE SET document=EXCLUDED\.document, updated_at=now\(\)`).
		WithArgs("board", doc).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, r.Set(context.Background(), "board", doc))
}

func TestStateRepo_GetAll(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStateRepo(db)

	ts := time.Now().UTC()
	rows := pgxmock.NewRows([]string{"key", "document", "created_at", "updated_at"}).
		AddRow("a", []byte(`{}`), ts, ts).
		AddRow("b", []byte(`{}`), ts, ts)

	mock.ExpectQuery(`SELECT key, document, created_at, updated_at\s+FROM state_blobs ORDER BY key`).
		WillReturnRows(rows)

	out, err := r.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Key)
}

func TestStateRepo_GetAll_QueryErr(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewStateRepo(db)

	mock.ExpectQuery(`SELECT key, document, created_at, updated_at\s+FROM state_blobs ORDER BY key`).
		WillReturnError(errors.New("q-fail"))

	_, err := r.GetAll(context.Background())
	require.Error(t, err)
}
