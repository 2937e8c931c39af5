package forum

import (
	"context"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// AdminService holds moderation operations. Every method requires an admin actor.
type AdminService struct {
	store      Store
	questions  *QuestionService
	answers    *AnswerService
	reconciler *Reconciler
	log        *zap.Logger
}

func NewAdminService(store Store, questions *QuestionService, answers *AnswerService, reconciler *Reconciler, log *zap.Logger) *AdminService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{store: store, questions: questions, answers: answers, reconciler: reconciler, log: log}
}

func requireAdmin(actor Identity) error {
	if !actor.IsAdmin() {
		return Forbiddenf("Not enough permissions")
	}
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, actor Identity, skip, limit int) ([]models.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	skip, limit = Page(skip, limit, 20)
	return s.store.ListUsers(ctx, skip, limit)
}

func (s *AdminService) Ban(ctx context.Context, actor Identity, userID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	userID, err := ParseID("user", userID)
	if err != nil {
		return err
	}
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsAdmin() {
		return Forbiddenf("Cannot ban admin users")
	}
	if err := s.store.SetUserActive(ctx, userID, false); err != nil {
		return err
	}
	s.log.Info("user banned", zap.String("user_id", userID), zap.String("admin_id", actor.UserID))
	return nil
}

func (s *AdminService) Unban(ctx context.Context, actor Identity, userID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	userID, err := ParseID("user", userID)
	if err != nil {
		return err
	}
	if _, err := s.store.FindUser(ctx, userID); err != nil {
		return err
	}
	if err := s.store.SetUserActive(ctx, userID, true); err != nil {
		return err
	}
	s.log.Info("user unbanned", zap.String("user_id", userID), zap.String("admin_id", actor.UserID))
	return nil
}

func (s *AdminService) DeleteQuestion(ctx context.Context, actor Identity, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.questions.remove(ctx, id, nil)
}

func (s *AdminService) DeleteAnswer(ctx context.Context, actor Identity, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.answers.remove(ctx, id, nil)
}

func (s *AdminService) Stats(ctx context.Context, actor Identity) (models.Stats, error) {
	if err := requireAdmin(actor); err != nil {
		return models.Stats{}, err
	}
	return s.store.Stats(ctx)
}

func (s *AdminService) Reconcile(ctx context.Context, actor Identity) (ReconcileReport, error) {
	if err := requireAdmin(actor); err != nil {
		return ReconcileReport{}, err
	}
	s.log.Info("reconcile requested", zap.String("admin_id", actor.UserID))
	return s.reconciler.RunOnce(ctx)
}
