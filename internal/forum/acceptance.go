package forum

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/monitoring"
)

// AcceptResult reports the state of the question after an accept transition.
type AcceptResult struct {
	Message          string `json:"message"`
	QuestionID       string `json:"question_id"`
	AnswerID         string `json:"answer_id"`
	PreviousAnswerID string `json:"previous_answer_id,omitempty"`
	IsAnswered       bool   `json:"is_answered"`
}

// Acceptance governs the accepted answer of each question. Question.AcceptedAnswerID is
// authoritative; Answer.IsAccepted mirrors it inside the same atomic operation.
type Acceptance struct {
	store Store
	log   *zap.Logger
}

func NewAcceptance(store Store, log *zap.Logger) *Acceptance {
	if log == nil {
		log = zap.NewNop()
	}
	return &Acceptance{store: store, log: log}
}

// Accept moves the question's acceptance to answerID. Only the question's author may
// accept; accepting the already accepted answer changes nothing.
func (a *Acceptance) Accept(ctx context.Context, answerID string, actor Identity) (AcceptResult, error) {
	ctx, span := tracer.Start(ctx, "forum.Acceptance.Accept")
	defer span.End()
	span.SetAttributes(attribute.String("answer.id", answerID))

	answerID, err := ParseID("answer", answerID)
	if err != nil {
		return AcceptResult{}, err
	}
	questionID, err := answerParent(ctx, a.store, answerID)
	if err != nil {
		return AcceptResult{}, err
	}

	var res AcceptResult
	err = a.store.Atomic(ctx, func(tx Repository) error {
		question, answer, err := lockAnswer(ctx, tx, questionID, answerID)
		if err != nil {
			return err
		}
		if !actor.Owns(question.AuthorID) {
			return Forbiddenf("Only question author can accept answers")
		}

		res = AcceptResult{
			Message:    "Answer accepted successfully",
			QuestionID: question.ID,
			AnswerID:   answer.ID,
			IsAnswered: true,
		}
		prev := question.AcceptedAnswerID
		if prev != nil {
			res.PreviousAnswerID = *prev
		}
		if prev != nil && *prev == answer.ID && answer.IsAccepted && question.IsAnswered {
			return nil
		}

		if err := tx.ClearAcceptedAnswers(ctx, question.ID); err != nil {
			return err
		}
		if err := tx.SetAnswerAccepted(ctx, answer.ID, true); err != nil {
			return err
		}
		next := answer.ID
		swapped, err := tx.SetQuestionAcceptance(ctx, question.ID, prev, &next, true)
		if err != nil {
			return err
		}
		if !swapped {
			return Conflictf("Question acceptance changed concurrently, retry")
		}
		return nil
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, ErrForbidden) {
			result = "forbidden"
		} else if errors.Is(err, ErrConflict) {
			result = "conflict"
		}
		monitoring.Acceptances.WithLabelValues(result).Inc()
		a.log.Warn("accept rejected",
			zap.String("answer_id", answerID),
			zap.String("actor_id", actor.UserID),
			zap.Error(err),
		)
		return AcceptResult{}, err
	}

	monitoring.Acceptances.WithLabelValues("accepted").Inc()
	a.log.Info("answer accepted",
		zap.String("question_id", res.QuestionID),
		zap.String("answer_id", res.AnswerID),
		zap.String("previous_answer_id", res.PreviousAnswerID),
	)
	return res, nil
}

// detachAccepted clears acceptance when the accepted answer of question goes away.
// Must run inside Atomic with the question locked.
func detachAccepted(ctx context.Context, tx Repository, question *models.Question, answerID string, policy AcceptedDeletePolicy) error {
	if question.AcceptedAnswerID == nil || *question.AcceptedAnswerID != answerID {
		return nil
	}
	answered := question.IsAnswered
	if policy == ResetAnswered {
		answered = false
	}
	swapped, err := tx.SetQuestionAcceptance(ctx, question.ID, question.AcceptedAnswerID, nil, answered)
	if err != nil {
		return err
	}
	if !swapped {
		return Conflictf("Question acceptance changed concurrently, retry")
	}
	return nil
}
