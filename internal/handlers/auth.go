package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type AuthHandler struct {
	users *forum.UserService
	errs  errorWriter
}

func NewAuthHandler(users *forum.UserService, errs errorWriter) *AuthHandler {
	return &AuthHandler{users: users, errs: errs}
}

// Register creates a user account; it does not log the user in.
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		h.errs.write(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), req)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// Login accepts JSON or an OAuth2 password form.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		h.errs.write(c, forum.Validationf("username and password are required"))
		return
	}

	resp, err := h.users.Authenticate(c.Request.Context(), req)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) GetMe(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	user, err := h.users.Get(c.Request.Context(), identity.UserID)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) UpdateMe(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	var req models.UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		h.errs.write(c, err)
		return
	}

	user, err := h.users.UpdateSelf(c.Request.Context(), identity, req)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
