package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{forum.NotFoundf("Question not found"), http.StatusNotFound},
		{forum.InvalidIdentifierf("Invalid question ID"), http.StatusBadRequest},
		{forum.Validationf("No data to update"), http.StatusBadRequest},
		{forum.InactiveUser(), http.StatusBadRequest},
		{forum.Forbiddenf("Not enough permissions"), http.StatusForbidden},
		{forum.Unauthenticatedf("Could not validate credentials"), http.StatusUnauthorized},
		{forum.Conflictf("retry"), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(forum.KindOf(tt.err)), tt.err.Error())
	}
}

func serve(w errorWriter, fn func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)
	return rr
}

func TestWriteHidesInternalErrors(t *testing.T) {
	w := errorWriter{log: zap.NewNop()}
	rr := serve(w, func(c *gin.Context) { w.write(c, errors.New("pq: password authentication failed")) })

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body["error"])
	assert.Equal(t, string(forum.KindInternal), body["kind"])
}

func TestWriteScoped(t *testing.T) {
	strict := errorWriter{log: zap.NewNop()}
	legacy := errorWriter{legacy: true, log: zap.NewNop()}
	forbidden := forum.Forbiddenf("Not authorized to delete this answer")

	rr := serve(strict, func(c *gin.Context) { strict.writeScoped(c, forbidden, "answer") })
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(legacy, func(c *gin.Context) { legacy.writeScoped(c, forbidden, "answer") })
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid answer ID")

	rr = serve(legacy, func(c *gin.Context) {
		legacy.writeScoped(c, forum.Unauthenticatedf("Could not validate credentials"), "answer")
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
}
