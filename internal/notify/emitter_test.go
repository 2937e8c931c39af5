package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/memstore"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type fakeSMS struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, to, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.sent == nil {
		f.sent = map[string]string{}
	}
	f.sent[to] = body
	return nil
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, forum.Event) (*models.Notification, error) {
	return nil, errors.New("store down")
}

func seedUser(t *testing.T, store *memstore.Store, phone string) *models.User {
	t.Helper()
	u := &models.User{ID: forum.NewID(), Username: "bob", Email: "bob@example.com", Phone: phone, Role: models.RoleUser, IsActive: true}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func answerEvent(recipient string) forum.Event {
	return forum.Event{
		RecipientID:    recipient,
		Type:           models.NotificationAnswer,
		Title:          "New answer to your question",
		Message:        "alice answered your question",
		SenderUsername: "alice",
	}
}

func TestEmitRecordsAndTexts(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	user := seedUser(t, store, "+15550001111")
	sms := &fakeSMS{}
	e := NewEmitter(forum.NewNotificationService(store, nil), store, sms, nil)

	e.Emit(ctx, answerEvent(user.ID))
	e.Wait()

	count, err := store.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, "New answer to your question: alice answered your question", sms.sent["+15550001111"])
}

func TestEmitSkipsSMSWithoutPhone(t *testing.T) {
	store := memstore.New()
	user := seedUser(t, store, "")
	sms := &fakeSMS{}
	e := NewEmitter(forum.NewNotificationService(store, nil), store, sms, nil)

	e.Emit(context.Background(), answerEvent(user.ID))
	e.Wait()

	assert.Empty(t, sms.sent)
}

func TestEmitFailsOpen(t *testing.T) {
	store := memstore.New()
	user := seedUser(t, store, "+15550001111")
	sms := &fakeSMS{err: errors.New("twilio unavailable")}

	assert.NotPanics(t, func() {
		NewEmitter(failingRecorder{}, store, sms, nil).Emit(context.Background(), answerEvent(user.ID))
	})

	e := NewEmitter(forum.NewNotificationService(store, nil), store, sms, nil)
	e.Emit(context.Background(), answerEvent(user.ID))
	e.Wait()
	count, err := store.CountUnread(context.Background(), user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
