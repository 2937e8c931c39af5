package forum

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

var questionSorts = map[string]struct{}{
	"created_at":    {},
	"votes":         {},
	"views":         {},
	"answers_count": {},
}

type QuestionService struct {
	store  Store
	ledger *Ledger
	sync   *Synchronizer
	log    *zap.Logger
}

func NewQuestionService(store Store, ledger *Ledger, sync *Synchronizer, log *zap.Logger) *QuestionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &QuestionService{store: store, ledger: ledger, sync: sync, log: log}
}

func (s *QuestionService) Create(ctx context.Context, actor Identity, req models.CreateQuestionRequest) (*models.Question, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	req.Tags = normalizeTags(req.Tags)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	q := &models.Question{
		ID:             NewID(),
		AuthorID:       actor.UserID,
		AuthorUsername: actor.Username,
		Title:          req.Title,
		Description:    req.Description,
		Tags:           req.Tags,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info("question created", zap.String("question_id", q.ID), zap.String("author_id", q.AuthorID))
	return q, nil
}

// Get returns a question and counts the view. A failed view increment is logged only.
func (s *QuestionService) Get(ctx context.Context, id string) (*models.Question, error) {
	id, err := ParseID("question", id)
	if err != nil {
		return nil, err
	}
	q, err := s.store.FindQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.AddQuestionCounter(ctx, id, CounterViews, 1)
	switch {
	case err != nil:
		s.log.Warn("view not counted", zap.String("question_id", id), zap.Error(err))
	case ok:
		q.Views++
	}
	return q, nil
}

func (s *QuestionService) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error) {
	filter.Skip, filter.Limit = Page(filter.Skip, filter.Limit, 10)
	if filter.SortBy == "" {
		filter.SortBy = "created_at"
	}
	if _, ok := questionSorts[filter.SortBy]; !ok {
		return nil, Validationf("sort_by must be one of created_at, votes, views, answers_count")
	}
	switch filter.SortOrder {
	case "":
		filter.SortOrder = "desc"
	case "asc", "desc":
	default:
		return nil, Validationf("sort_order must be asc or desc")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Tags = normalizeTags(filter.Tags)
	return s.store.ListQuestions(ctx, filter)
}

// Update applies a partial update. Owner or admin only.
func (s *QuestionService) Update(ctx context.Context, actor Identity, id string, req models.UpdateQuestionRequest) (*models.Question, error) {
	id, err := ParseID("question", id)
	if err != nil {
		return nil, err
	}
	if req.Empty() {
		return nil, Validationf("No data to update")
	}
	if req.Title != nil {
		v := strings.TrimSpace(*req.Title)
		req.Title = &v
	}
	if req.Description != nil {
		v := strings.TrimSpace(*req.Description)
		req.Description = &v
	}
	if req.Tags != nil {
		req.Tags = normalizeTags(req.Tags)
		if len(req.Tags) == 0 {
			return nil, Validationf("tags must contain at least 1 items")
		}
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var out *models.Question
	err = s.store.Atomic(ctx, func(tx Repository) error {
		q, err := tx.FindQuestion(ctx, id)
		if err != nil {
			return err
		}
		if !actor.CanModify(q.AuthorID) {
			return Forbiddenf("Not authorized to update this question")
		}
		if err := tx.UpdateQuestion(ctx, id, req); err != nil {
			return err
		}
		out, err = tx.FindQuestion(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete cascades the question's answers and votes. Owner or admin only.
func (s *QuestionService) Delete(ctx context.Context, actor Identity, id string) error {
	return s.remove(ctx, id, func(q *models.Question) error {
		if !actor.CanModify(q.AuthorID) {
			return Forbiddenf("Not authorized to delete this question")
		}
		return nil
	})
}

func (s *QuestionService) remove(ctx context.Context, id string, authorize func(*models.Question) error) error {
	id, err := ParseID("question", id)
	if err != nil {
		return err
	}
	return s.store.Atomic(ctx, func(tx Repository) error {
		q, err := tx.FindQuestion(ctx, id)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(q); err != nil {
				return err
			}
		}
		_, err = s.sync.QuestionDeleted(ctx, tx, id)
		return err
	})
}

func (s *QuestionService) Vote(ctx context.Context, actor Identity, id, voteType string) (VoteResult, error) {
	id, err := ParseID("question", id)
	if err != nil {
		return VoteResult{}, err
	}
	intent, err := ParseIntent(voteType)
	if err != nil {
		return VoteResult{}, err
	}
	return s.ledger.Cast(ctx, QuestionSubject(id), actor.UserID, intent)
}
