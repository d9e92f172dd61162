package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "resource_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("1", "user@example.com", "hash", "User", string(models.RoleAdmin), nil, true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, resource_id, active, last_login, created_at, updated_at FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("user@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), " user@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRefreshToken(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	token := &models.RefreshToken{ID: "1", UserID: "u1", Token: "token", ExpiresAt: time.Now()}
	err := repo.CreateRefreshToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "1", token.FamilyID)
	assert.False(t, token.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshTokenRevokesAndInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE id = $1 AND revoked = FALSE")).
		WithArgs("old", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	next := &models.RefreshToken{UserID: "u1", FamilyID: "fam", Token: "new", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.RotateRefreshToken(context.Background(), "old", next))
	assert.NotEmpty(t, next.ID)
	assert.Equal(t, "fam", next.FamilyID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshTokenLosesRace(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens SET revoked = TRUE").
		WithArgs("old", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RotateRefreshToken(context.Background(), "old", &models.RefreshToken{UserID: "u1", FamilyID: "fam", Token: "new"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeRefreshTokenFamilyCountsLiveTokens(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE family_id = $1 AND revoked = FALSE")).
		WithArgs("fam", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	revoked, err := repo.RevokeRefreshTokenFamily(context.Background(), "fam", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindActiveByResource(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "resource_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("5", "bruno@example.com", "hash", "Bruno", string(models.RoleStaff), int64(2), true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE resource_id = $1 AND active = TRUE LIMIT 1")).
		WithArgs(int64(2)).
		WillReturnRows(rows)

	user, err := repo.FindActiveByResource(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "5", user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDCarriesResource(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "resource_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("2", "staff@example.com", "hash", "Staff", string(models.RoleStaff), int64(3), true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1 LIMIT 1")).
		WithArgs("2").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "2")
	require.NoError(t, err)
	require.NotNil(t, user.ResourceID)
	assert.Equal(t, int64(3), *user.ResourceID)
	assert.Nil(t, user.LastLogin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1)")).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserListFiltersByResource(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	resourceID := int64(3)
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "resource_id", "active", "last_login", "created_at", "updated_at"}).
		AddRow("2", "staff@example.com", "hash", "Staff", string(models.RoleStaff), int64(3), true, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE 1=1 AND resource_id = $1 AND (LOWER(email) LIKE $2 OR LOWER(full_name) LIKE $2) ORDER BY email ASC LIMIT 20 OFFSET 0")).
		WithArgs(resourceID, "%staff%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE 1=1 AND resource_id = $1")).
		WithArgs(resourceID, "%staff%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	users, total, err := repo.List(context.Background(), models.UserFilter{
		ResourceID: &resourceID,
		Search:     "Staff",
		SortBy:     "email",
		SortOrder:  "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleStaff, users[0].Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateAndSoftDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (id, email, password_hash, full_name, role, resource_id, active, created_at, updated_at)")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET active = FALSE")).
		WithArgs("u9", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{Email: "new@example.com", FullName: "New", Role: models.RoleScheduler, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	require.NoError(t, repo.Delete(context.Background(), "u9"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
