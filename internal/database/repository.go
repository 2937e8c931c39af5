package database

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// repo implements forum.Repository on a *gorm.DB, which is either the pool or an
// open transaction. lock adds FOR UPDATE to single-row reads.
type repo struct {
	db   *gorm.DB
	lock bool
}

func (r repo) q(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r repo) row(ctx context.Context) *gorm.DB {
	q := r.q(ctx)
	if r.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

var counterColumns = map[forum.Counter]string{
	forum.CounterVotes:   "votes",
	forum.CounterViews:   "views",
	forum.CounterAnswers: "answers_count",
}

var sortColumns = map[string]string{
	"created_at":    "created_at",
	"votes":         "votes",
	"views":         "views",
	"answers_count": "answers_count",
}

// Users

func (r repo) CreateUser(ctx context.Context, user *models.User) error {
	return mapError(r.q(ctx).Create(user).Error, "User not found")
}

func (r repo) FindUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.row(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "User not found")
	}
	return &u, nil
}

func (r repo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.row(ctx).Where("lower(username) = lower(?)", username).First(&u).Error; err != nil {
		return nil, mapError(err, "User not found")
	}
	return &u, nil
}

func (r repo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.row(ctx).Where("lower(email) = lower(?)", email).First(&u).Error; err != nil {
		return nil, mapError(err, "User not found")
	}
	return &u, nil
}

func (r repo) UpdateUser(ctx context.Context, id string, patch forum.UserPatch) error {
	updates := map[string]any{}
	if patch.Username != nil {
		updates["username"] = *patch.Username
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.FullName != nil {
		updates["full_name"] = *patch.FullName
	}
	if patch.HashedPassword != nil {
		updates["hashed_password"] = *patch.HashedPassword
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.q(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return mapError(res.Error, "User not found")
	}
	if res.RowsAffected == 0 {
		return forum.NotFoundf("User not found")
	}
	return nil
}

func (r repo) SetUserActive(ctx context.Context, id string, active bool) error {
	res := r.q(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return forum.NotFoundf("User not found")
	}
	return nil
}

func (r repo) ListUsers(ctx context.Context, skip, limit int) ([]models.User, error) {
	users := []models.User{}
	err := r.q(ctx).Order("created_at desc").Order("id").Offset(skip).Limit(limit).Find(&users).Error
	return users, err
}

// Questions

func (r repo) CreateQuestion(ctx context.Context, question *models.Question) error {
	return mapError(r.q(ctx).Create(question).Error, "Question not found")
}

func (r repo) FindQuestion(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := r.row(ctx).First(&q, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "Question not found")
	}
	return &q, nil
}

func (r repo) ListQuestions(ctx context.Context, f models.QuestionFilter) ([]models.Question, error) {
	q := r.q(ctx).Model(&models.Question{})
	if f.Search != "" {
		q = q.Where("to_tsvector('english', title || ' ' || description) @@ plainto_tsquery('english', ?)", f.Search)
	}
	if len(f.Tags) > 0 {
		q = q.Where("tags && ?", pq.StringArray(f.Tags))
	}
	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "created_at"
	}
	q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: f.SortOrder != "asc"}).Order("id")

	questions := []models.Question{}
	err := q.Offset(f.Skip).Limit(f.Limit).Find(&questions).Error
	return questions, err
}

func (r repo) UpdateQuestion(ctx context.Context, id string, patch models.UpdateQuestionRequest) error {
	updates := map[string]any{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Tags != nil {
		updates["tags"] = pq.StringArray(patch.Tags)
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.q(ctx).Model(&models.Question{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return forum.NotFoundf("Question not found")
	}
	return nil
}

func (r repo) DeleteQuestion(ctx context.Context, id string) (bool, error) {
	res := r.q(ctx).Delete(&models.Question{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

// AddQuestionCounter is a single UPDATE ... SET col = col + delta.
func (r repo) AddQuestionCounter(ctx context.Context, id string, counter forum.Counter, delta int) (bool, error) {
	col, ok := counterColumns[counter]
	if !ok {
		return false, forum.Validationf("unknown counter %q", counter)
	}
	res := r.q(ctx).Model(&models.Question{}).Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta))
	return res.RowsAffected > 0, res.Error
}

func (r repo) SetQuestionAcceptance(ctx context.Context, id string, expected, next *string, answered bool) (bool, error) {
	res := r.q(ctx).Model(&models.Question{}).
		Where("id = ? AND accepted_answer_id IS NOT DISTINCT FROM ?::uuid", id, expected).
		Updates(map[string]any{
			"accepted_answer_id": next,
			"is_answered":        answered,
			"updated_at":         time.Now().UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

// Answers

func (r repo) CreateAnswer(ctx context.Context, answer *models.Answer) error {
	return mapError(r.q(ctx).Create(answer).Error, "Answer not found")
}

func (r repo) FindAnswer(ctx context.Context, id string) (*models.Answer, error) {
	var a models.Answer
	if err := r.row(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "Answer not found")
	}
	return &a, nil
}

func (r repo) ListAnswers(ctx context.Context, questionID string, skip, limit int) ([]models.Answer, error) {
	answers := []models.Answer{}
	err := r.q(ctx).Where("question_id = ?", questionID).
		Order("votes desc").Order("created_at asc").Order("id").
		Offset(skip).Limit(limit).Find(&answers).Error
	return answers, err
}

func (r repo) AnswerIDs(ctx context.Context, questionID string) ([]string, error) {
	var ids []string
	err := r.q(ctx).Model(&models.Answer{}).Where("question_id = ?", questionID).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r repo) UpdateAnswerContent(ctx context.Context, id, content string) error {
	res := r.q(ctx).Model(&models.Answer{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return forum.NotFoundf("Answer not found")
	}
	return nil
}

func (r repo) DeleteAnswer(ctx context.Context, id string) (bool, error) {
	res := r.q(ctx).Delete(&models.Answer{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (r repo) DeleteAnswersByQuestion(ctx context.Context, questionID string) (int64, error) {
	res := r.q(ctx).Delete(&models.Answer{}, "question_id = ?", questionID)
	return res.RowsAffected, res.Error
}

func (r repo) AddAnswerVotes(ctx context.Context, id string, delta int) (bool, error) {
	res := r.q(ctx).Model(&models.Answer{}).Where("id = ?", id).
		UpdateColumn("votes", gorm.Expr("votes + ?", delta))
	return res.RowsAffected > 0, res.Error
}

func (r repo) SetAnswerAccepted(ctx context.Context, id string, accepted bool) error {
	res := r.q(ctx).Model(&models.Answer{}).Where("id = ?", id).UpdateColumn("is_accepted", accepted)
	if res.Error != nil {
		return mapError(res.Error, "Answer not found")
	}
	if res.RowsAffected == 0 {
		return forum.NotFoundf("Answer not found")
	}
	return nil
}

func (r repo) ClearAcceptedAnswers(ctx context.Context, questionID string) error {
	return r.q(ctx).Model(&models.Answer{}).
		Where("question_id = ? AND is_accepted", questionID).
		UpdateColumn("is_accepted", false).Error
}

// Votes

func (r repo) FindVote(ctx context.Context, subject forum.Subject, voterID string) (forum.Polarity, error) {
	var v models.Vote
	err := r.q(ctx).
		Where("subject_type = ? AND subject_id = ? AND user_id = ?", subject.Kind, subject.ID, voterID).
		Take(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return forum.PolarityNone, nil
	}
	if err != nil {
		return forum.PolarityNone, err
	}
	return forum.PolarityFromInt(v.Value)
}

func (r repo) PutVote(ctx context.Context, subject forum.Subject, voterID string, value forum.Polarity) error {
	if value == forum.PolarityNone {
		return r.DeleteVote(ctx, subject, voterID)
	}
	v := models.Vote{
		SubjectType: subject.Kind,
		SubjectID:   subject.ID,
		UserID:      voterID,
		Value:       value.Int(),
	}
	return r.q(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_type"}, {Name: "subject_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&v).Error
}

func (r repo) DeleteVote(ctx context.Context, subject forum.Subject, voterID string) error {
	return r.q(ctx).
		Where("subject_type = ? AND subject_id = ? AND user_id = ?", subject.Kind, subject.ID, voterID).
		Delete(&models.Vote{}).Error
}

func (r repo) DeleteVotes(ctx context.Context, kind models.SubjectKind, subjectIDs []string) error {
	if len(subjectIDs) == 0 {
		return nil
	}
	return r.q(ctx).Where("subject_type = ? AND subject_id IN ?", kind, subjectIDs).Delete(&models.Vote{}).Error
}

func (r repo) ListVotes(ctx context.Context, subject forum.Subject) (map[string]forum.Polarity, error) {
	var rows []models.Vote
	if err := r.q(ctx).Where("subject_type = ? AND subject_id = ?", subject.Kind, subject.ID).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]forum.Polarity, len(rows))
	for _, v := range rows {
		p, err := forum.PolarityFromInt(v.Value)
		if err != nil {
			return nil, err
		}
		out[v.UserID] = p
	}
	return out, nil
}

// Notifications

func (r repo) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.q(ctx).Create(n).Error
}

func (r repo) FindNotification(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.row(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "Notification not found")
	}
	return &n, nil
}

func (r repo) ListNotifications(ctx context.Context, f models.NotificationFilter) ([]models.Notification, error) {
	q := r.q(ctx).Where("recipient_id = ?", f.RecipientID)
	if f.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	out := []models.Notification{}
	err := q.Order("created_at desc").Order("id").Offset(f.Skip).Limit(f.Limit).Find(&out).Error
	return out, err
}

func (r repo) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var n int64
	err := r.q(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).Count(&n).Error
	return n, err
}

func (r repo) MarkNotificationRead(ctx context.Context, id string) error {
	res := r.q(ctx).Model(&models.Notification{}).Where("id = ?", id).Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return forum.NotFoundf("Notification not found")
	}
	return nil
}

func (r repo) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int64, error) {
	res := r.q(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r repo) DeleteNotification(ctx context.Context, id string) (bool, error) {
	res := r.q(ctx).Delete(&models.Notification{}, "id = ?", id)
	return res.RowsAffected > 0, res.Error
}

func (r repo) Stats(ctx context.Context) (models.Stats, error) {
	var s models.Stats
	counts := []struct {
		model any
		where string
		dst   *int64
	}{
		{&models.User{}, "", &s.TotalUsers},
		{&models.User{}, "is_active", &s.ActiveUsers},
		{&models.Question{}, "", &s.TotalQuestions},
		{&models.Question{}, "is_answered", &s.AnsweredQuestions},
		{&models.Answer{}, "", &s.TotalAnswers},
	}
	for _, c := range counts {
		q := r.q(ctx).Model(c.model)
		if c.where != "" {
			q = q.Where(c.where)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return models.Stats{}, err
		}
	}
	s.BannedUsers = s.TotalUsers - s.ActiveUsers
	s.UnansweredQuestions = s.TotalQuestions - s.AnsweredQuestions
	return s, nil
}
