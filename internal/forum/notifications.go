package forum

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

var notificationTypes = map[models.NotificationType]struct{}{
	models.NotificationAnswer:  {},
	models.NotificationComment: {},
	models.NotificationMention: {},
	models.NotificationVote:    {},
}

// NotificationService is the recipient-facing side of notifications.
type NotificationService struct {
	store Store
	log   *zap.Logger
}

func NewNotificationService(store Store, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{store: store, log: log}
}

// Record persists an event as an unread notification.
func (s *NotificationService) Record(ctx context.Context, event Event) (*models.Notification, error) {
	recipient, err := ParseID("user", event.RecipientID)
	if err != nil {
		return nil, Validationf("recipient_id is invalid")
	}
	event.RecipientID = recipient
	if _, ok := notificationTypes[event.Type]; !ok {
		return nil, Validationf("type must be one of answer, comment, mention, vote")
	}
	if strings.TrimSpace(event.Title) == "" || strings.TrimSpace(event.Message) == "" {
		return nil, Validationf("title and message are required")
	}
	n := &models.Notification{
		ID:                NewID(),
		RecipientID:       event.RecipientID,
		Type:              event.Type,
		Title:             event.Title,
		Message:           event.Message,
		RelatedQuestionID: event.RelatedQuestionID,
		RelatedAnswerID:   event.RelatedAnswerID,
		SenderUsername:    event.SenderUsername,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, actor Identity, skip, limit int, unreadOnly bool) ([]models.Notification, error) {
	skip, limit = Page(skip, limit, 20)
	return s.store.ListNotifications(ctx, models.NotificationFilter{
		RecipientID: actor.UserID,
		Skip:        skip,
		Limit:       limit,
		UnreadOnly:  unreadOnly,
	})
}

func (s *NotificationService) UnreadCount(ctx context.Context, actor Identity) (int64, error) {
	return s.store.CountUnread(ctx, actor.UserID)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor Identity, id string) error {
	if _, err := s.owned(ctx, actor, id, "Not authorized to mark this notification as read"); err != nil {
		return err
	}
	return s.store.MarkNotificationRead(ctx, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, actor Identity) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, actor.UserID)
}

func (s *NotificationService) Delete(ctx context.Context, actor Identity, id string) error {
	if _, err := s.owned(ctx, actor, id, "Not authorized to delete this notification"); err != nil {
		return err
	}
	deleted, err := s.store.DeleteNotification(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return NotFoundf("Notification not found")
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, actor Identity, id, denied string) (*models.Notification, error) {
	id, err := ParseID("notification", id)
	if err != nil {
		return nil, err
	}
	n, err := s.store.FindNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(n.RecipientID) {
		return nil, Forbiddenf("%s", denied)
	}
	return n, nil
}
