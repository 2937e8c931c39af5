package forum

import (
	"context"
	"errors"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Subject is a Question or Answer that can receive votes.
type Subject struct {
	Kind models.SubjectKind
	ID   string
}

func QuestionSubject(id string) Subject { return Subject{Kind: models.SubjectQuestion, ID: id} }

func AnswerSubject(id string) Subject { return Subject{Kind: models.SubjectAnswer, ID: id} }

// Counter names an integer column on a question that is only ever moved by deltas.
type Counter string

const (
	CounterVotes   Counter = "votes"
	CounterViews   Counter = "views"
	CounterAnswers Counter = "answers_count"
)

// UserPatch is a partial user update; nil fields are left untouched.
type UserPatch struct {
	Username       *string
	Email          *string
	FullName       *string
	HashedPassword *string
	Phone          *string
}

// ReconcileReport counts rows whose stored aggregates disagreed with live data.
type ReconcileReport struct {
	AnswerVotesRepaired   int64 `json:"answer_votes_repaired"`
	QuestionVotesRepaired int64 `json:"question_votes_repaired"`
	AnswerCountsRepaired  int64 `json:"answer_counts_repaired"`
	AcceptanceRepaired    int64 `json:"acceptance_repaired"`
}

func (r ReconcileReport) Total() int64 {
	return r.AnswerVotesRepaired + r.QuestionVotesRepaired + r.AnswerCountsRepaired + r.AcceptanceRepaired
}

// Repository is the Entity Store seen by the core. Find* return a NotFound error for
// missing rows; mutators that report a bool return false when no row matched.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUser(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch UserPatch) error
	SetUserActive(ctx context.Context, id string, active bool) error
	ListUsers(ctx context.Context, skip, limit int) ([]models.User, error)

	CreateQuestion(ctx context.Context, question *models.Question) error
	FindQuestion(ctx context.Context, id string) (*models.Question, error)
	ListQuestions(ctx context.Context, filter models.QuestionFilter) ([]models.Question, error)
	UpdateQuestion(ctx context.Context, id string, patch models.UpdateQuestionRequest) error
	DeleteQuestion(ctx context.Context, id string) (bool, error)
	AddQuestionCounter(ctx context.Context, id string, counter Counter, delta int) (bool, error)
	// SetQuestionAcceptance is a compare-and-swap on accepted_answer_id.
	SetQuestionAcceptance(ctx context.Context, id string, expected, next *string, answered bool) (bool, error)

	CreateAnswer(ctx context.Context, answer *models.Answer) error
	FindAnswer(ctx context.Context, id string) (*models.Answer, error)
	ListAnswers(ctx context.Context, questionID string, skip, limit int) ([]models.Answer, error)
	AnswerIDs(ctx context.Context, questionID string) ([]string, error)
	UpdateAnswerContent(ctx context.Context, id, content string) error
	DeleteAnswer(ctx context.Context, id string) (bool, error)
	DeleteAnswersByQuestion(ctx context.Context, questionID string) (int64, error)
	AddAnswerVotes(ctx context.Context, id string, delta int) (bool, error)
	SetAnswerAccepted(ctx context.Context, id string, accepted bool) error
	ClearAcceptedAnswers(ctx context.Context, questionID string) error

	FindVote(ctx context.Context, subject Subject, voterID string) (Polarity, error)
	PutVote(ctx context.Context, subject Subject, voterID string, value Polarity) error
	DeleteVote(ctx context.Context, subject Subject, voterID string) error
	DeleteVotes(ctx context.Context, kind models.SubjectKind, subjectIDs []string) error
	ListVotes(ctx context.Context, subject Subject) (map[string]Polarity, error)

	CreateNotification(ctx context.Context, notification *models.Notification) error
	FindNotification(ctx context.Context, id string) (*models.Notification, error)
	ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error)
	DeleteNotification(ctx context.Context, id string) (bool, error)

	Stats(ctx context.Context) (models.Stats, error)
}

// Store adds the atomic boundary. Inside Atomic, Find* lock the rows they return until
// fn returns; a non-nil error from fn discards every write made through tx.
type Store interface {
	Repository
	Atomic(ctx context.Context, fn func(tx Repository) error) error
	Reconcile(ctx context.Context, policy AcceptedDeletePolicy) (ReconcileReport, error)
}

// answerParent reads an answer's question id outside any transaction. Answers never
// move between questions, so the id stays valid for a later lockAnswer.
func answerParent(ctx context.Context, store Store, answerID string) (string, error) {
	a, err := store.FindAnswer(ctx, answerID)
	if err != nil {
		return "", err
	}
	return a.QuestionID, nil
}

// lockAnswer locks the question before its answer. Every writer that touches both rows
// takes them in this order, the same order the question delete cascade uses.
func lockAnswer(ctx context.Context, tx Repository, questionID, answerID string) (*models.Question, *models.Answer, error) {
	question, err := tx.FindQuestion(ctx, questionID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, NotFoundf("Answer not found")
	}
	if err != nil {
		return nil, nil, err
	}
	answer, err := tx.FindAnswer(ctx, answerID)
	if err != nil {
		return nil, nil, err
	}
	if answer.QuestionID != question.ID {
		return nil, nil, NotFoundf("Answer not found")
	}
	return question, answer, nil
}
