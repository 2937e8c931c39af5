package forum_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/memstore"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []forum.Event
}

func (n *recordingNotifier) Emit(_ context.Context, e forum.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) Events() []forum.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]forum.Event(nil), n.events...)
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *memstore.Store
	svc      *forum.Services
	notifier *recordingNotifier
}

func newFixture(t *testing.T, policy forum.AcceptedDeletePolicy) *fixture {
	t.Helper()
	store := memstore.New()
	notifier := &recordingNotifier{}
	svc := forum.New(store, forum.Options{
		Policy:      policy,
		Hasher:      auth.BcryptHasher{Cost: 4},
		Tokens:      auth.NewTokenManager("0123456789abcdef0123456789abcdef", 30*time.Minute),
		Notifier:    notifier,
		AdminEmails: []string{"admin@example.com"},
	})
	return &fixture{t: t, ctx: context.Background(), store: store, svc: svc, notifier: notifier}
}

func (f *fixture) user(name string) forum.Identity {
	f.t.Helper()
	u, err := f.svc.Users.Register(f.ctx, models.RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		FullName: "User " + name,
		Password: "secret123",
	})
	require.NoError(f.t, err)
	return forum.IdentityOf(u)
}

func (f *fixture) question(author forum.Identity) *models.Question {
	f.t.Helper()
	q, err := f.svc.Questions.Create(f.ctx, author, models.CreateQuestionRequest{
		Title:       "How do I keep counters consistent?",
		Description: "Concurrent requests keep losing updates on my vote totals.",
		Tags:        []string{"go", "concurrency"},
	})
	require.NoError(f.t, err)
	return q
}

func (f *fixture) answer(author forum.Identity, questionID string, n int) *models.Answer {
	f.t.Helper()
	a, err := f.svc.Answers.Create(f.ctx, author, questionID, models.CreateAnswerRequest{
		Content: fmt.Sprintf("Use a transaction with row locks, take %d.", n),
	})
	require.NoError(f.t, err)
	return a
}

func (f *fixture) reloadQuestion(id string) *models.Question {
	f.t.Helper()
	q, err := f.store.FindQuestion(f.ctx, id)
	require.NoError(f.t, err)
	return q
}

func (f *fixture) reloadAnswer(id string) *models.Answer {
	f.t.Helper()
	a, err := f.store.FindAnswer(f.ctx, id)
	require.NoError(f.t, err)
	return a
}

func (f *fixture) liveAnswers(questionID string) int {
	f.t.Helper()
	ids, err := f.store.AnswerIDs(f.ctx, questionID)
	require.NoError(f.t, err)
	return len(ids)
}
