package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expectInsertIgnore(m pgxmock.PgxPoolIface, table string, cols []string, n int64) {
	tempTable := fmt.Sprintf("_tmp_append_%s", table)
	m.ExpectBegin()
	m.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	m.ExpectCopyFrom(pgx.Identifier{tempTable}, cols).WillReturnResult(n)
	m.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", n))
	m.ExpectCommit()
}

func TestBulkInsertIgnore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := InsertIgnoreConfig{
		Table:        "training_records",
		Columns:      []string{"video_id", "title", "vph"},
		ConflictKeys: []string{"video_id"},
	}
	rows := [][]any{
		{"vid-1", "first", 50.0},
		{"vid-2", "second", 90.0},
	}

	expectInsertIgnore(mock, cfg.Table, cfg.Columns, 2)

	n, err := BulkInsertIgnore(context.Background(), mock, cfg, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertIgnore_EmptyRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n, err := BulkInsertIgnore(context.Background(), mock, InsertIgnoreConfig{
		Table:        "training_records",
		Columns:      []string{"video_id"},
		ConflictKeys: []string{"video_id"},
	}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkInsertIgnore_MissingConfig(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{{"vid-1"}}

	_, err = BulkInsertIgnore(context.Background(), mock, InsertIgnoreConfig{
		Table:        "training_records",
		ConflictKeys: []string{"video_id"},
	}, rows)
	assert.ErrorContains(t, err, "no columns")

	_, err = BulkInsertIgnore(context.Background(), mock, InsertIgnoreConfig{
		Table:   "training_records",
		Columns: []string{"video_id"},
	}, rows)
	assert.ErrorContains(t, err, "no conflict keys")
}

func TestBulkInsertIgnore_CopyFailureRollsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := InsertIgnoreConfig{
		Table:        "training_records",
		Columns:      []string{"video_id"},
		ConflictKeys: []string{"video_id"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_append_training_records"}, cfg.Columns).
		WillReturnError(fmt.Errorf("connection lost"))
	mock.ExpectRollback()

	_, err = BulkInsertIgnore(context.Background(), mock, cfg, [][]any{{"vid-1"}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "COPY into temp table")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	assert.Equal(t, `"training_records"`, sanitizeTable("training_records"))
	assert.Equal(t, `"predictor"."training_records"`, sanitizeTable("predictor.training_records"))
}
