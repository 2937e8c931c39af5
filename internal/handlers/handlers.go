package handlers

import (
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

// Handler combines all handler types
type Handler struct {
	Auth         *AuthHandler
	Question     *QuestionHandler
	Answer       *AnswerHandler
	Notification *NotificationHandler
	Admin        *AdminHandler
}

// NewHandler creates a unified handler with all sub-handlers. legacyErrors makes
// id-scoped endpoints answer every non-401 failure with 400 "Invalid <entity> ID".
func NewHandler(services *forum.Services, legacyErrors bool, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	errs := errorWriter{legacy: legacyErrors, log: log}

	return &Handler{
		Auth:         NewAuthHandler(services.Users, errs),
		Question:     NewQuestionHandler(services.Questions, errs),
		Answer:       NewAnswerHandler(services.Answers, errs),
		Notification: NewNotificationHandler(services.Notifications, errs),
		Admin:        NewAdminHandler(services.Admin, errs),
	}
}
