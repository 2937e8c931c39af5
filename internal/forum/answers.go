package forum

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type AnswerService struct {
	store      Store
	ledger     *Ledger
	acceptance *Acceptance
	sync       *Synchronizer
	notifier   Notifier
	log        *zap.Logger
}

func NewAnswerService(store Store, ledger *Ledger, acceptance *Acceptance, sync *Synchronizer, notifier Notifier, log *zap.Logger) *AnswerService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AnswerService{
		store:      store,
		ledger:     ledger,
		acceptance: acceptance,
		sync:       sync,
		notifier:   notifier,
		log:        log,
	}
}

// Create inserts an answer and bumps the question's answers_count atomically, then
// notifies the question author.
func (s *AnswerService) Create(ctx context.Context, actor Identity, questionID string, req models.CreateAnswerRequest) (*models.Answer, error) {
	questionID, err := ParseID("question", questionID)
	if err != nil {
		return nil, err
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	answer := &models.Answer{
		ID:             NewID(),
		QuestionID:     questionID,
		AuthorID:       actor.UserID,
		AuthorUsername: actor.Username,
		Content:        req.Content,
	}
	var question *models.Question
	err = s.store.Atomic(ctx, func(tx Repository) error {
		q, err := tx.FindQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		question = q
		return s.sync.AnswerCreated(ctx, tx, answer)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("answer created",
		zap.String("answer_id", answer.ID),
		zap.String("question_id", questionID),
		zap.Int("answers_count", question.AnswersCount+1),
	)

	if question.AuthorID != actor.UserID {
		qid, aid := question.ID, answer.ID
		s.notifier.Emit(context.WithoutCancel(ctx), Event{
			RecipientID:       question.AuthorID,
			Type:              models.NotificationAnswer,
			Title:             "New answer to your question",
			Message:           fmt.Sprintf("%s answered your question: %s", actor.Username, question.Title),
			RelatedQuestionID: &qid,
			RelatedAnswerID:   &aid,
			SenderUsername:    actor.Username,
		})
	}
	return answer, nil
}

// ListForQuestion returns a question's answers, highest voted first.
func (s *AnswerService) ListForQuestion(ctx context.Context, questionID string, skip, limit int) ([]models.Answer, error) {
	questionID, err := ParseID("question", questionID)
	if err != nil {
		return nil, err
	}
	skip, limit = Page(skip, limit, 10)
	return s.store.ListAnswers(ctx, questionID, skip, limit)
}

func (s *AnswerService) Get(ctx context.Context, id string) (*models.Answer, error) {
	id, err := ParseID("answer", id)
	if err != nil {
		return nil, err
	}
	return s.store.FindAnswer(ctx, id)
}

func (s *AnswerService) Update(ctx context.Context, actor Identity, id string, req models.UpdateAnswerRequest) (*models.Answer, error) {
	id, err := ParseID("answer", id)
	if err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, Validationf("No data to update")
	}
	content := strings.TrimSpace(*req.Content)
	req.Content = &content
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var out *models.Answer
	err = s.store.Atomic(ctx, func(tx Repository) error {
		a, err := tx.FindAnswer(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanModify(a.AuthorID) {
			return Forbiddenf("Not authorized to update this answer")
		}
		if err := tx.UpdateAnswerContent(ctx, id, content); err != nil {
			return err
		}
		out, err = tx.FindAnswer(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an answer. Owner or admin only.
func (s *AnswerService) Delete(ctx context.Context, actor Identity, id string) error {
	return s.remove(ctx, id, func(a *models.Answer) error {
		if !actor.CanModify(a.AuthorID) {
			return Forbiddenf("Not authorized to delete this answer")
		}
		return nil
	})
}

func (s *AnswerService) remove(ctx context.Context, id string, authorize func(*models.Answer) error) error {
	id, err := ParseID("answer", id)
	if err != nil {
		return err
	}
	questionID, err := answerParent(ctx, s.store, id)
	if err != nil {
		return err
	}
	err = s.store.Atomic(ctx, func(tx Repository) error {
		question, a, err := lockAnswer(ctx, tx, questionID, id)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(a); err != nil {
				return err
			}
		}
		return s.sync.AnswerDeleted(ctx, tx, question, a)
	})
	if err != nil {
		return err
	}
	s.log.Info("answer deleted", zap.String("answer_id", id))
	return nil
}

func (s *AnswerService) Vote(ctx context.Context, actor Identity, id, voteType string) (VoteResult, error) {
	id, err := ParseID("answer", id)
	if err != nil {
		return VoteResult{}, err
	}
	intent, err := ParseIntent(voteType)
	if err != nil {
		return VoteResult{}, err
	}
	return s.ledger.Cast(ctx, AnswerSubject(id), actor.UserID, intent)
}

func (s *AnswerService) Accept(ctx context.Context, actor Identity, id string) (AcceptResult, error) {
	return s.acceptance.Accept(ctx, id, actor)
}
