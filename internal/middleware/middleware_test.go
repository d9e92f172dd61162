package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

type validatorStub struct {
	claims *models.JWTClaims
}

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return v.claims, nil
}

type auditStub struct {
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/things/:id", handlers...)
	return router
}

func serve(router *gin.Engine, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/things/7", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestJWTStoresSession(t *testing.T) {
	own := int64(4)
	validator := validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleStaff, ResourceID: &own}}

	var session models.Session
	router := newRouter(JWT(validator), func(c *gin.Context) {
		session, _ = SessionFromContext(c)
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer bad").Code)

	require.Equal(t, http.StatusOK, serve(router, "Bearer good").Code)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, "good", session.AccessToken)
	assert.Equal(t, models.SingleResource(4), session.DefaultSelection())
}

func TestRBACRequiresEditorRole(t *testing.T) {
	for role, want := range map[models.UserRole]int{
		models.RoleAdmin:     http.StatusOK,
		models.RoleScheduler: http.StatusOK,
		models.RoleStaff:     http.StatusForbidden,
	} {
		router := newRouter(JWT(validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: role}}), RequireEditor(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		assert.Equal(t, want, serve(router, "Bearer good").Code, role)
	}

	router := newRouter(RequireEditor(), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &auditStub{}
	validator := validatorStub{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}
	ok := newRouter(JWT(validator), Audit(recorder, nil, models.AuditActionAppointmentDelete, "appointments"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	failing := newRouter(JWT(validator), Audit(recorder, nil, models.AuditActionAppointmentDelete, "appointments"), func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	serve(ok, "Bearer good")
	serve(failing, "Bearer good")

	require.Len(t, recorder.logs, 1)
	log := recorder.logs[0]
	assert.Equal(t, "u1", *log.UserID)
	assert.Equal(t, "7", *log.ResourceID)
	assert.Contains(t, string(log.NewValues), `"status":204`)
}

func TestResponseMetaCacheStatusAndRange(t *testing.T) {
	var meta map[string]interface{}
	router := newRouter(WithResponseMeta(), func(c *gin.Context) {
		SetCacheStatus(c, models.CacheStatus{Key: "agenda:grid:week:2024-05-06:all", TTL: 30 * time.Second})
		SetRange(c, caldate.MustParse("2024-05-06"), caldate.MustParse("2024-05-12"))
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})
	w := serve(router, "")

	assert.Equal(t, false, meta[cacheHitKey])
	assert.Equal(t, "agenda:grid:week:2024-05-06:all", meta[cacheKeyKey])
	assert.Equal(t, int64(30), meta[cacheTTLKey])
	assert.Equal(t, "2024-05-06", meta[rangeStartKey])
	assert.Equal(t, "2024-05-12", meta[rangeEndKey])
	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))
}

func TestSetCacheStatusWithoutMiddlewareStartsMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetCacheStatus(c, models.CacheStatus{Hit: true})

	meta := ExtractMeta(c)
	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	_, hasKey := meta[cacheKeyKey]
	assert.False(t, hasKey)
}
