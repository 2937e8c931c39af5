package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func seedQuestion(t *testing.T, s *Store) *models.Question {
	t.Helper()
	q := &models.Question{ID: forum.NewID(), AuthorID: forum.NewID(), Title: "title", Description: "description", Tags: []string{"go"}}
	require.NoError(t, s.CreateQuestion(context.Background(), q))
	return q
}

func TestAtomicRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := seedQuestion(t, s)

	boom := errors.New("boom")
	err := s.Atomic(ctx, func(tx forum.Repository) error {
		if _, err := tx.AddQuestionCounter(ctx, q.ID, forum.CounterVotes, 10); err != nil {
			return err
		}
		if err := tx.PutVote(ctx, forum.QuestionSubject(q.ID), "voter", forum.PolarityUp); err != nil {
			return err
		}
		if err := tx.UpdateQuestion(ctx, q.ID, models.UpdateQuestionRequest{Tags: []string{"changed"}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.FindQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Votes)
	assert.Equal(t, []string{"go"}, []string(got.Tags))
	votes, err := s.ListVotes(ctx, forum.QuestionSubject(q.ID))
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestAtomicCommits(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := seedQuestion(t, s)

	require.NoError(t, s.Atomic(ctx, func(tx forum.Repository) error {
		_, err := tx.AddQuestionCounter(ctx, q.ID, forum.CounterAnswers, 2)
		return err
	}))
	got, err := s.FindQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AnswersCount)
}

func TestAtomicHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().Atomic(ctx, func(forum.Repository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestReturnedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	q := seedQuestion(t, s)

	got, err := s.FindQuestion(ctx, q.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Votes = 99

	again, err := s.FindQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "go", again.Tags[0])
	assert.Zero(t, again.Votes)
}

func TestUniqueUsersAndSingleAcceptance(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateUser(ctx, &models.User{ID: forum.NewID(), Username: "Ann", Email: "ann@example.com"}))
	err := s.CreateUser(ctx, &models.User{ID: forum.NewID(), Username: "ann", Email: "other@example.com"})
	assert.ErrorIs(t, err, forum.ErrConflict)

	q := seedQuestion(t, s)
	a := &models.Answer{ID: forum.NewID(), QuestionID: q.ID, Content: "first answer"}
	b := &models.Answer{ID: forum.NewID(), QuestionID: q.ID, Content: "second answer"}
	require.NoError(t, s.CreateAnswer(ctx, a))
	require.NoError(t, s.CreateAnswer(ctx, b))
	require.NoError(t, s.SetAnswerAccepted(ctx, a.ID, true))
	assert.ErrorIs(t, s.SetAnswerAccepted(ctx, b.ID, true), forum.ErrConflict)

	swapped, err := s.SetQuestionAcceptance(ctx, q.ID, nil, &a.ID, true)
	require.NoError(t, err)
	assert.True(t, swapped)
	swapped, err = s.SetQuestionAcceptance(ctx, q.ID, nil, &b.ID, true)
	require.NoError(t, err)
	assert.False(t, swapped, "stale expectation must not swap")
}
