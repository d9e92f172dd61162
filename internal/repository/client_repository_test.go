package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
)

func TestClientRepositoryListWithSearch(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "notes", "created_at", "updated_at"}).
		AddRow(int64(1), "Dana Smith", "dana@example.com", nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email, phone, notes, created_at, updated_at FROM clients WHERE 1=1 AND (LOWER(full_name) LIKE $1 OR LOWER(COALESCE(email, '')) LIKE $1) ORDER BY created_at DESC LIMIT 10 OFFSET 10")).
		WithArgs("%dana%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM clients WHERE 1=1 AND")).
		WithArgs("%dana%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	clients, total, err := repo.List(context.Background(), models.ClientFilter{Search: "Dana", Page: 2, PageSize: 10, SortBy: "created_at", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClientRepositoryListRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClientRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM clients WHERE 1=1 ORDER BY full_name ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email", "phone", "notes", "created_at", "updated_at"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM clients WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, total, err := repo.List(context.Background(), models.ClientFilter{SortBy: "password; DROP TABLE"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
