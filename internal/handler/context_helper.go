package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/middleware"
	"github.com/JaePyJs/perpetual-help-enrollment-system-sub000/internal/models"
	appErrors "github.com/JaePyJs/perpetual-help-enrollment-system-sub000/pkg/errors"
)

// actorFromContext returns the authenticated actor or an unauthorized error.
func actorFromContext(c *gin.Context) (models.Actor, error) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok || actor.ID == "" {
		return models.Actor{}, appErrors.ErrUnauthorized
	}
	return actor, nil
}

func bindJSON(c *gin.Context, dest interface{}) error {
	if err := c.ShouldBindJSON(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload")
	}
	return nil
}

func cacheMeta(c *gin.Context, hit bool) map[string]interface{} {
	middleware.SetCacheHit(c, hit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{"cache_hit": hit}
	}
	return meta
}
