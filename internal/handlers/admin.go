package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

type AdminHandler struct {
	admin *forum.AdminService
	errs  errorWriter
}

func NewAdminHandler(admin *forum.AdminService, errs errorWriter) *AdminHandler {
	return &AdminHandler{admin: admin, errs: errs}
}

func (h *AdminHandler) GetUsers(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	skip, limit, err := pageParams(c, 20)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	users, err := h.admin.ListUsers(c.Request.Context(), identity, skip, limit)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) BanUser(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	if err := h.admin.Ban(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.writeScoped(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User banned successfully"})
}

func (h *AdminHandler) UnbanUser(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	if err := h.admin.Unban(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.writeScoped(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unbanned successfully"})
}

func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	if err := h.admin.DeleteQuestion(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.writeScoped(c, err, "question")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Question deleted by admin"})
}

func (h *AdminHandler) DeleteAnswer(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	if err := h.admin.DeleteAnswer(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.writeScoped(c, err, "answer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answer deleted by admin"})
}

func (h *AdminHandler) GetStats(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	stats, err := h.admin.Stats(c.Request.Context(), identity)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Reconcile repairs drifted counters on demand and reports what changed.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	report, err := h.admin.Reconcile(c.Request.Context(), identity)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reconciliation completed", "report": report, "repaired": report.Total()})
}
