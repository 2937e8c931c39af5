package database

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

var testDSN string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("stackit"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres container unavailable, skipping store tests: %v\n", err)
		os.Exit(m.Run())
	}
	testDSN, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintf(os.Stderr, "connection string: %v\n", err)
	}

	code := m.Run()
	if err := testcontainers.TerminateContainer(ctr); err != nil {
		fmt.Fprintf(os.Stderr, "terminate container: %v\n", err)
	}
	os.Exit(code)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	if testDSN == "" {
		t.Skip("postgres not available")
	}
	store, err := OpenDSN(testDSN, config.DatabaseConfig{DBName: "stackit", LogLevel: "silent", MaxOpenConns: 20}, nil)
	require.NoError(t, err)
	require.NoError(t, store.GetDB().Exec("TRUNCATE users, questions, answers, votes, notifications").Error)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

type pgFixture struct {
	t     *testing.T
	ctx   context.Context
	store *Store
	svc   *forum.Services
}

func newPGFixture(t *testing.T, policy forum.AcceptedDeletePolicy) *pgFixture {
	store := openTestStore(t)
	svc := forum.New(store, forum.Options{
		Policy: policy,
		Hasher: auth.BcryptHasher{Cost: 4},
		Tokens: auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour),
	})
	return &pgFixture{t: t, ctx: context.Background(), store: store, svc: svc}
}

func (f *pgFixture) user(name string) forum.Identity {
	f.t.Helper()
	u, err := f.svc.Users.Register(f.ctx, models.RegisterRequest{
		Username: name, Email: name + "@example.com", FullName: name, Password: "secret123",
	})
	require.NoError(f.t, err)
	return forum.IdentityOf(u)
}

func (f *pgFixture) question(author forum.Identity) *models.Question {
	f.t.Helper()
	q, err := f.svc.Questions.Create(f.ctx, author, models.CreateQuestionRequest{
		Title:       "Row locks in postgres transactions",
		Description: "When does SELECT FOR UPDATE block other writers?",
		Tags:        []string{"postgres", "Go"},
	})
	require.NoError(f.t, err)
	return q
}

func (f *pgFixture) answer(author forum.Identity, questionID string) *models.Answer {
	f.t.Helper()
	a, err := f.svc.Answers.Create(f.ctx, author, questionID, models.CreateAnswerRequest{Content: "It blocks until the holder commits."})
	require.NoError(f.t, err)
	return a
}

func TestStoreHealth(t *testing.T) {
	store := openTestStore(t)
	assert.Equal(t, "up", store.Health()["status"])
}

func TestStoreUniqueUsers(t *testing.T) {
	f := newPGFixture(t, forum.KeepAnswered)
	f.user("dana")

	err := f.store.CreateUser(f.ctx, &models.User{ID: forum.NewID(), Username: "dana", Email: "dana2@example.com", HashedPassword: "x", Role: models.RoleUser})
	assert.ErrorIs(t, err, forum.ErrConflict)

	_, err = f.store.FindUser(f.ctx, forum.NewID())
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func TestStoreConcurrentVotes(t *testing.T) {
	f := newPGFixture(t, forum.KeepAnswered)
	author := f.user("author")
	q := f.question(author)

	const voters = 20
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			intent := forum.IntentUp
			if i%2 == 1 {
				intent = forum.IntentDown
			}
			voter := forum.NewID()
			for n := 0; n < 3; n++ {
				_, err := f.svc.Ledger.Cast(f.ctx, forum.QuestionSubject(q.ID), voter, intent)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	tally, err := f.svc.Ledger.Tally(f.ctx, forum.QuestionSubject(q.ID))
	require.NoError(t, err)
	assert.Len(t, tally.Map, voters)
	assert.Equal(t, tally.Sum(), tally.Votes)
	assert.Equal(t, 0, tally.Votes)
}

func TestStoreConcurrentAnswers(t *testing.T) {
	f := newPGFixture(t, forum.KeepAnswered)
	author, helper := f.user("author"), f.user("helper")
	q := f.question(author)

	const n = 15
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Answers.Create(f.ctx, helper, q.ID, models.CreateAnswerRequest{Content: "Concurrent answer body"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.store.FindQuestion(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.AnswersCount)
	ids, err := f.store.AnswerIDs(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, ids, n)
}

func TestStoreDeletesRaceWithoutDeadlock(t *testing.T) {
	f := newPGFixture(t, forum.KeepAnswered)
	author, helper, voter := f.user("author"), f.user("helper"), f.user("voter")

	const rounds = 10
	for i := 0; i < rounds; i++ {
		q := f.question(author)
		a := f.answer(helper, q.ID)
		b := f.answer(helper, q.ID)
		_, err := f.svc.Answers.Accept(f.ctx, author, a.ID)
		require.NoError(t, err)

		ops := []func() error{
			func() error { return f.svc.Answers.Delete(f.ctx, helper, a.ID) },
			func() error { return f.svc.Questions.Delete(f.ctx, author, q.ID) },
			func() error {
				_, err := f.svc.Answers.Accept(f.ctx, author, b.ID)
				return err
			},
			func() error {
				_, err := f.svc.Answers.Vote(f.ctx, voter, b.ID, "upvote")
				return err
			},
		}
		errs := make([]error, len(ops))
		var wg sync.WaitGroup
		for n, op := range ops {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[n] = op()
			}()
		}
		wg.Wait()

		require.NoError(t, errs[1], "question delete, round %d", i)
		for n, err := range errs {
			if err != nil {
				assert.ErrorIs(t, err, forum.ErrNotFound, "op %d round %d", n, i)
			}
		}
		_, err = f.store.FindQuestion(f.ctx, q.ID)
		assert.ErrorIs(t, err, forum.ErrNotFound)
		ids, err := f.store.AnswerIDs(f.ctx, q.ID)
		require.NoError(t, err)
		assert.Empty(t, ids)
		votes, err := f.store.ListVotes(f.ctx, forum.AnswerSubject(b.ID))
		require.NoError(t, err)
		assert.Empty(t, votes)
	}
}

func TestMapErrorContention(t *testing.T) {
	for _, code := range []string{deadlockDetected, serializationFailure} {
		err := mapError(fmt.Errorf("exec: %w", &pgconn.PgError{Code: code}), "Answer not found")
		assert.ErrorIs(t, err, forum.ErrConflict, code)
		assert.Equal(t, forum.KindConflict, forum.KindOf(err))
	}
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "idx_users_email"}, ""), forum.ErrConflict)

	other := &pgconn.PgError{Code: "42P01"}
	assert.Same(t, other, mapContention(other))
	assert.NoError(t, mapContention(nil))
}

func TestStoreAcceptanceAndPolicy(t *testing.T) {
	f := newPGFixture(t, forum.ResetAnswered)
	author, helper := f.user("author"), f.user("helper")
	q := f.question(author)
	a := f.answer(helper, q.ID)
	b := f.answer(helper, q.ID)

	_, err := f.svc.Answers.Accept(f.ctx, author, a.ID)
	require.NoError(t, err)
	res, err := f.svc.Answers.Accept(f.ctx, author, b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, res.PreviousAnswerID)

	// the partial unique index allows one accepted answer per question
	assert.ErrorIs(t, f.store.SetAnswerAccepted(f.ctx, a.ID, true), forum.ErrConflict)

	require.NoError(t, f.svc.Answers.Delete(f.ctx, helper, b.ID))
	stored, err := f.store.FindQuestion(f.ctx, q.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.AcceptedAnswerID)
	assert.False(t, stored.IsAnswered)
	assert.Equal(t, 1, stored.AnswersCount)
}

func TestStoreQuestionListing(t *testing.T) {
	f := newPGFixture(t, forum.KeepAnswered)
	author := f.user("author")
	q := f.question(author)
	assert.Equal(t, []string{"postgres", "go"}, []string(q.Tags))

	got, err := f.svc.Questions.List(f.ctx, models.QuestionFilter{Tags: []string{"go"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, q.ID, got[0].ID)

	got, err = f.svc.Questions.List(f.ctx, models.QuestionFilter{Search: "update"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.svc.Questions.List(f.ctx, models.QuestionFilter{Tags: []string{"rust"}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreDeleteCascadeAndReconcile(t *testing.T) {
	f := newPGFixture(t, forum.KeepAnswered)
	author, helper, voter := f.user("author"), f.user("helper"), f.user("voter")
	q := f.question(author)
	keep := f.question(author)
	a := f.answer(helper, q.ID)
	k := f.answer(helper, keep.ID)
	_, err := f.svc.Answers.Vote(f.ctx, voter, a.ID, "upvote")
	require.NoError(t, err)
	_, err = f.svc.Answers.Vote(f.ctx, voter, k.ID, "upvote")
	require.NoError(t, err)

	require.NoError(t, f.svc.Questions.Delete(f.ctx, author, q.ID))
	_, err = f.store.FindAnswer(f.ctx, a.ID)
	assert.ErrorIs(t, err, forum.ErrNotFound)
	votes, err := f.store.ListVotes(f.ctx, forum.AnswerSubject(a.ID))
	require.NoError(t, err)
	assert.Empty(t, votes)

	require.NoError(t, f.store.GetDB().Exec("UPDATE answers SET votes = 40 WHERE id = ?", k.ID).Error)
	require.NoError(t, f.store.GetDB().Exec("UPDATE questions SET answers_count = 9 WHERE id = ?", keep.ID).Error)

	report, err := f.store.Reconcile(f.ctx, forum.KeepAnswered)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.AnswerVotesRepaired)
	assert.EqualValues(t, 1, report.AnswerCountsRepaired)

	fixed, err := f.store.FindAnswer(f.ctx, k.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed.Votes)
	stored, err := f.store.FindQuestion(f.ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.AnswersCount)
}
