// Package notify delivers forum events: every event becomes a stored notification,
// and recipients with a phone number also get an SMS when a sender is configured.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/monitoring"
)

type Recorder interface {
	Record(ctx context.Context, event forum.Event) (*models.Notification, error)
}

type UserFinder interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) error
}

const smsTimeout = 10 * time.Second

// Emitter implements forum.Notifier. Failures are logged and counted, never returned.
type Emitter struct {
	recorder Recorder
	users    UserFinder
	sms      SMSSender
	log      *zap.Logger
	wg       sync.WaitGroup
}

func NewEmitter(recorder Recorder, users UserFinder, sms SMSSender, log *zap.Logger) *Emitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Emitter{recorder: recorder, users: users, sms: sms, log: log}
}

var _ forum.Notifier = (*Emitter)(nil)

func (e *Emitter) Emit(ctx context.Context, event forum.Event) {
	n, err := e.recorder.Record(ctx, event)
	if err != nil {
		monitoring.NotificationFailures.WithLabelValues("record").Inc()
		e.log.Warn("notification not recorded",
			zap.String("recipient_id", event.RecipientID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
		return
	}
	e.log.Debug("notification recorded", zap.String("notification_id", n.ID), zap.String("recipient_id", n.RecipientID))

	if e.sms == nil || e.users == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliverSMS(context.WithoutCancel(ctx), n)
	}()
}

func (e *Emitter) deliverSMS(ctx context.Context, n *models.Notification) {
	ctx, cancel := context.WithTimeout(ctx, smsTimeout)
	defer cancel()

	user, err := e.users.FindUser(ctx, n.RecipientID)
	if err != nil {
		monitoring.NotificationFailures.WithLabelValues("lookup").Inc()
		e.log.Warn("sms recipient lookup failed", zap.String("recipient_id", n.RecipientID), zap.Error(err))
		return
	}
	if user.Phone == "" || !user.IsActive {
		return
	}
	if err := e.sms.Send(ctx, user.Phone, n.Title+": "+n.Message); err != nil {
		monitoring.NotificationFailures.WithLabelValues("sms").Inc()
		e.log.Warn("sms not sent", zap.String("notification_id", n.ID), zap.Error(err))
		return
	}
	e.log.Info("sms sent", zap.String("notification_id", n.ID))
}

// Wait blocks until in-flight SMS deliveries finish.
func (e *Emitter) Wait() {
	e.wg.Wait()
}
