package forum

import (
	"context"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Event is a notification request handed to the Notifier.
type Event struct {
	RecipientID       string
	Type              models.NotificationType
	Title             string
	Message           string
	RelatedQuestionID *string
	RelatedAnswerID   *string
	SenderUsername    string
}

// Notifier is fire-and-forget: implementations log their own failures and never block
// the operation that triggered them.
type Notifier interface {
	Emit(ctx context.Context, event Event)
}

type nopNotifier struct{}

func (nopNotifier) Emit(context.Context, Event) {}
