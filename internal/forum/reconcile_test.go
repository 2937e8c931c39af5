package forum_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

func TestReconcileRepairsDrift(t *testing.T) {
	f := newFixture(t, forum.KeepAnswered)
	admin, author, helper, voter := f.user("admin"), f.user("author"), f.user("helper"), f.user("voter")
	q := f.question(author)
	a := f.answer(helper, q.ID, 1)
	b := f.answer(helper, q.ID, 2)
	_, err := f.svc.Answers.Vote(f.ctx, voter, a.ID, "upvote")
	require.NoError(t, err)
	_, err = f.svc.Questions.Vote(f.ctx, voter, q.ID, "downvote")
	require.NoError(t, err)

	report, err := f.svc.Reconciler.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Total(), "consistent data needs no repair")

	// writes that bypass the core
	_, err = f.store.AddAnswerVotes(f.ctx, a.ID, 5)
	require.NoError(t, err)
	_, err = f.store.AddQuestionCounter(f.ctx, q.ID, forum.CounterVotes, 3)
	require.NoError(t, err)
	_, err = f.store.AddQuestionCounter(f.ctx, q.ID, forum.CounterAnswers, 7)
	require.NoError(t, err)
	require.NoError(t, f.store.SetAnswerAccepted(f.ctx, b.ID, true))

	report, err = f.svc.Admin.Reconcile(f.ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, report.AnswerVotesRepaired)
	assert.EqualValues(t, 1, report.QuestionVotesRepaired)
	assert.EqualValues(t, 1, report.AnswerCountsRepaired)
	assert.EqualValues(t, 1, report.AcceptanceRepaired)

	assert.Equal(t, 1, f.reloadAnswer(a.ID).Votes)
	assert.False(t, f.reloadAnswer(b.ID).IsAccepted)
	stored := f.reloadQuestion(q.ID)
	assert.Equal(t, -1, stored.Votes)
	assert.Equal(t, 2, stored.AnswersCount)

	report, err = f.svc.Reconciler.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Total())
}

func TestReconcileRunStopsWithContext(t *testing.T) {
	f := newFixture(t, forum.KeepAnswered)

	ctx, cancel := context.WithCancel(f.ctx)
	done := make(chan struct{})
	go func() {
		f.svc.Reconciler.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}

	// disabled interval returns immediately
	f.svc.Reconciler.Run(context.Background(), 0)
}
