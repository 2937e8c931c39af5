package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

type NotificationHandler struct {
	notifications *forum.NotificationService
	errs          errorWriter
}

func NewNotificationHandler(notifications *forum.NotificationService, errs errorWriter) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, errs: errs}
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	skip, limit, err := pageParams(c, 20)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	unreadOnly, err := strconv.ParseBool(c.DefaultQuery("unread_only", "false"))
	if err != nil {
		h.errs.write(c, forum.Validationf("unread_only must be a boolean"))
		return
	}

	items, err := h.notifications.List(c.Request.Context(), identity, skip, limit, unreadOnly)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(c.Request.Context(), identity)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.writeScoped(c, err, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	updated, err := h.notifications.MarkAllRead(c.Request.Context(), identity)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}

func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	identity, ok := h.errs.identity(c)
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), identity, c.Param("id")); err != nil {
		h.errs.writeScoped(c, err, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}
