package forum

import (
	"context"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/monitoring"
)

// Synchronizer keeps Question.AnswersCount equal to the number of live answers and
// runs the delete cascades. Every method expects to be called inside Store.Atomic.
type Synchronizer struct {
	policy AcceptedDeletePolicy
	log    *zap.Logger
}

func NewSynchronizer(policy AcceptedDeletePolicy, log *zap.Logger) *Synchronizer {
	if policy == "" {
		policy = KeepAnswered
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Synchronizer{policy: policy, log: log}
}

func (s *Synchronizer) Policy() AcceptedDeletePolicy { return s.policy }

// AnswerCreated bumps the parent counter and inserts the answer. A missing question
// aborts the creation.
func (s *Synchronizer) AnswerCreated(ctx context.Context, tx Repository, answer *models.Answer) error {
	ok, err := tx.AddQuestionCounter(ctx, answer.QuestionID, CounterAnswers, 1)
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundf("Question not found")
	}
	if err := tx.CreateAnswer(ctx, answer); err != nil {
		return err
	}
	monitoring.AnswerEvents.WithLabelValues("created").Inc()
	return nil
}

// AnswerDeleted removes answer and undoes its effect on question, which the caller has
// locked through lockAnswer. The row delete must match, so two concurrent deletes
// decrement the counter once.
func (s *Synchronizer) AnswerDeleted(ctx context.Context, tx Repository, question *models.Question, answer *models.Answer) error {
	deleted, err := tx.DeleteAnswer(ctx, answer.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return NotFoundf("Answer not found")
	}
	if _, err := tx.AddQuestionCounter(ctx, question.ID, CounterAnswers, -1); err != nil {
		return err
	}
	if err := tx.DeleteVotes(ctx, models.SubjectAnswer, []string{answer.ID}); err != nil {
		return err
	}
	if err := detachAccepted(ctx, tx, question, answer.ID, s.policy); err != nil {
		return err
	}
	monitoring.AnswerEvents.WithLabelValues("deleted").Inc()
	return nil
}

// QuestionDeleted cascades: answer votes, answers, question votes, then the question.
func (s *Synchronizer) QuestionDeleted(ctx context.Context, tx Repository, questionID string) (int64, error) {
	ids, err := tx.AnswerIDs(ctx, questionID)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		if err := tx.DeleteVotes(ctx, models.SubjectAnswer, ids); err != nil {
			return 0, err
		}
	}
	removed, err := tx.DeleteAnswersByQuestion(ctx, questionID)
	if err != nil {
		return 0, err
	}
	if err := tx.DeleteVotes(ctx, models.SubjectQuestion, []string{questionID}); err != nil {
		return 0, err
	}
	deleted, err := tx.DeleteQuestion(ctx, questionID)
	if err != nil {
		return 0, err
	}
	if !deleted {
		return 0, NotFoundf("Question not found")
	}
	monitoring.AnswerEvents.WithLabelValues("cascaded").Add(float64(removed))
	s.log.Info("question deleted",
		zap.String("question_id", questionID),
		zap.Int64("answers_removed", removed),
	)
	return removed, nil
}
