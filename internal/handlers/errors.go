package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/middleware"
	"github.com/emilythestrangee/stackit/backend/internal/tracing"
)

func statusOf(kind forum.Kind) int {
	switch kind {
	case forum.KindNotFound:
		return http.StatusNotFound
	case forum.KindInvalidIdentifier, forum.KindValidation, forum.KindInactiveUser:
		return http.StatusBadRequest
	case forum.KindForbidden:
		return http.StatusForbidden
	case forum.KindUnauthenticated:
		return http.StatusUnauthorized
	case forum.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type errorWriter struct {
	legacy bool
	log    *zap.Logger
}

func (w errorWriter) write(c *gin.Context, err error) {
	kind := forum.KindOf(err)
	c.Set(tracing.ErrorKindKey, string(kind))
	status := statusOf(kind)
	msg := err.Error()
	var fe *forum.Error
	if errors.As(err, &fe) {
		msg = fe.Message
	}

	if status == http.StatusInternalServerError {
		w.log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		msg = "Internal server error"
	}
	if kind == forum.KindUnauthenticated {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

// writeScoped is write for endpoints addressed by an entity id.
func (w errorWriter) writeScoped(c *gin.Context, err error, entity string) {
	kind := forum.KindOf(err)
	if !w.legacy || kind == forum.KindUnauthenticated {
		w.write(c, err)
		return
	}
	c.Set(tracing.ErrorKindKey, string(kind))
	w.log.Warn("request failed",
		zap.String("route", c.FullPath()),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s ID", entity), "kind": kind})
}

// identity returns the caller; the route must sit behind AuthMiddleware.
func (w errorWriter) identity(c *gin.Context) (forum.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		w.write(c, forum.Unauthenticatedf("Could not validate credentials"))
	}
	return id, ok
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, forum.Validationf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func pageParams(c *gin.Context, defLimit int) (int, int, error) {
	skip, err := queryInt(c, "skip", 0)
	if err != nil {
		return 0, 0, err
	}
	limit, err := queryInt(c, "limit", defLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > 100 {
		return 0, 0, forum.Validationf("limit must be between 1 and 100")
	}
	return skip, limit, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return forum.Validationf("invalid request body: %v", err)
	}
	return nil
}
