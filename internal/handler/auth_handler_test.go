package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

type authServiceMock struct {
	login        models.LoginRequest
	logoutUserID string
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.login = req
	if req.Password != "secret" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (m *authServiceMock) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2"}, nil
}

func (m *authServiceMock) Logout(ctx context.Context, refreshToken string, userID string, meta models.LoginRequest) error {
	m.logoutUserID = userID
	return nil
}

func (m *authServiceMock) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	return nil
}

func (m *authServiceMock) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Role: models.RoleStaff}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newJSONContext(http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"secret"}`)
	c.Request.Header.Set("User-Agent", "agenda-cli")
	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"access"`)
	assert.Equal(t, "agenda-cli", svc.login.UserAgent)

	c, w = newJSONContext(http.MethodPost, "/auth/login", `{"email":"ana@example.com","password":"nope"}`)
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newJSONContext(http.MethodPost, "/auth/login", `{`)
	handler.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLogoutUsesSession(t *testing.T) {
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newJSONContext(http.MethodPost, "/auth/logout", `{"refresh_token":"refresh"}`)
	handler.Logout(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newJSONContext(http.MethodPost, "/auth/logout", `{"refresh_token":"refresh"}`)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u7", Role: models.RoleStaff})
	handler.Logout(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u7", svc.logoutUserID)
}
