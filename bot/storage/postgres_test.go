package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*SubmissionRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSubmissionRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestSubmissionInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO users \(full_name, phone_number\) VALUES \(\$1, \$2\)`).
		WithArgs("John Doe", "+123456789012").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Insert(context.Background(), "John Doe", "+123456789012")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionInsertError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("John Doe", "+123456789012").
		WillReturnError(errors.New("connection reset"))

	err := repo.Insert(context.Background(), "John Doe", "+123456789012")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert submission")
}

func TestSubmissionList(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"id", "full_name", "phone_number"}).
		AddRow(1, "John Doe", "+123456789012").
		AddRow(2, "Anna Lee", "+210987654321")
	mock.ExpectQuery(`SELECT id, full_name, phone_number FROM users ORDER BY id`).
		WillReturnRows(rows)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Submission{ID: 1, FullName: "John Doe", PhoneNumber: "+123456789012"}, got[0])
	assert.Equal(t, int64(2), got[1].ID)
}

func TestSubmissionListEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT id, full_name, phone_number FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "phone_number"}))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecordUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO bot_users \(telegram_id\) VALUES \(\$1\) ON CONFLICT \(telegram_id\) DO NOTHING`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordUser(context.Background(), 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordUserConflictIsSilent(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`INSERT INTO bot_users`).
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.RecordUser(context.Background(), 42))
}

func TestListUserIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	rows := sqlmock.NewRows([]string{"telegram_id"}).AddRow(int64(7)).AddRow(int64(42))
	mock.ExpectQuery(`SELECT telegram_id FROM bot_users ORDER BY telegram_id`).
		WillReturnRows(rows)

	ids, err := repo.ListUserIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 42}, ids)
}
