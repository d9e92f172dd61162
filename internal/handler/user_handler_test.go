package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/internal/service"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

type userServiceMock struct {
	filter  models.UserFilter
	created service.CreateUserRequest
	actor   string
	err     error
}

func (m *userServiceMock) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	m.filter = filter
	return []models.User{{ID: "u1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *userServiceMock) Get(ctx context.Context, id string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: id}, nil
}

func (m *userServiceMock) Create(ctx context.Context, req service.CreateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	m.created, m.actor = req, actorID
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: "new", Email: req.Email, Role: req.Role, ResourceID: req.ResourceID}, nil
}

func (m *userServiceMock) Update(ctx context.Context, id string, req service.UpdateUserRequest, actorID string, meta models.LoginRequest) (*models.User, error) {
	m.actor = actorID
	return &models.User{ID: id, Role: req.Role}, nil
}

func (m *userServiceMock) Delete(ctx context.Context, id string, actorID string, meta models.LoginRequest) error {
	m.actor = actorID
	return m.err
}

func TestUserHandlerListFilters(t *testing.T) {
	svc := &userServiceMock{}
	c, w := newJSONContext(http.MethodGet, "/users?role=STAFF&active=true&resource_id=3&search=ana", "")
	NewUserHandler(svc).List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.filter.ResourceID)
	assert.Equal(t, int64(3), *svc.filter.ResourceID)
	assert.Equal(t, models.RoleStaff, *svc.filter.Role)
	assert.True(t, *svc.filter.Active)
	assert.Equal(t, "ana", svc.filter.Search)

	c, w = newJSONContext(http.MethodGet, "/users?resource_id=abc", "")
	NewUserHandler(svc).List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandlerCreateUsesActor(t *testing.T) {
	svc := &userServiceMock{}
	c, w := newJSONContext(http.MethodPost, "/users", `{"email":"ana@example.com","full_name":"Ana","role":"STAFF","resource_id":2,"password":"secret1","active":true}`)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	NewUserHandler(svc).Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", svc.actor)
	require.NotNil(t, svc.created.ResourceID)
	assert.Equal(t, int64(2), *svc.created.ResourceID)
	assert.Contains(t, w.Body.String(), `"resource_id":2`)
}

func TestUserHandlerRequiresClaimsAndMapsErrors(t *testing.T) {
	svc := &userServiceMock{}
	c, w := newJSONContext(http.MethodDelete, "/users/u2", "")
	NewUserHandler(svc).Delete(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "user not found")
	c, w = newJSONContext(http.MethodDelete, "/users/u2", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	NewUserHandler(svc).Delete(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
