package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/agenda-api/internal/middleware"
	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func sessionFromContext(c *gin.Context) (models.Session, error) {
	if session, ok := middleware.SessionFromContext(c); ok {
		return session, nil
	}
	if claims := claimsFromContext(c); claims != nil {
		return models.SessionFromClaims(claims), nil
	}
	return models.Session{}, appErrors.ErrUnauthorized
}

func idParam(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "id must be a positive integer")
	}
	return id, nil
}

func dateQuery(c *gin.Context, key string) (caldate.Date, error) {
	raw := c.Query(key)
	if raw == "" {
		return caldate.Date{}, nil
	}
	date, err := caldate.Parse(raw)
	if err != nil {
		return caldate.Date{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, key+" must be YYYY-MM-DD")
	}
	return date, nil
}

func bindError(err error, msg string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, msg)
}
