// Package memstore is an in-process Entity Store for tests and local development.
// Atomic holds the write lock for the whole callback and restores a snapshot when the
// callback fails.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

type voteKey struct {
	kind    models.SubjectKind
	subject string
	voter   string
}

type state struct {
	users         map[string]models.User
	questions     map[string]models.Question
	answers       map[string]models.Answer
	votes         map[voteKey]models.Vote
	notifications map[string]models.Notification
}

func newState() *state {
	return &state{
		users:         make(map[string]models.User),
		questions:     make(map[string]models.Question),
		answers:       make(map[string]models.Answer),
		votes:         make(map[voteKey]models.Vote),
		notifications: make(map[string]models.Notification),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.questions {
		c.questions[k] = copyQuestion(v)
	}
	for k, v := range s.answers {
		c.answers[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = copyNotification(v)
	}
	return c
}

type Store struct {
	repo

	mu   sync.RWMutex
	data *state
}

var _ forum.Store = (*Store)(nil)

func New() *Store {
	s := &Store{data: newState()}
	s.repo = repo{s: s}
	return s
}

// Atomic copies the whole state before fn runs, so every write costs O(rows). Use the
// postgres store for anything beyond development.
func (s *Store) Atomic(ctx context.Context, fn func(tx forum.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(repo{s: s, inTx: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) Health() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]string{
		"status":    "up",
		"message":   "It's healthy",
		"driver":    "memory",
		"questions": itoa(len(s.data.questions)),
		"answers":   itoa(len(s.data.answers)),
	}
}

func (s *Store) Close() error { return nil }

// repo implements forum.Repository. Outside Atomic each call takes the store lock
// itself; inside Atomic the lock is already held.
type repo struct {
	s    *Store
	inTx bool
}

func (r repo) read(fn func(*state) error) error {
	if !r.inTx {
		r.s.mu.RLock()
		defer r.s.mu.RUnlock()
	}
	return fn(r.s.data)
}

func (r repo) write(fn func(*state) error) error {
	if !r.inTx {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	return fn(r.s.data)
}

func now() time.Time { return time.Now().UTC() }

// Users

func (r repo) CreateUser(_ context.Context, user *models.User) error {
	return r.write(func(st *state) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
				return forum.Conflictf("username or email already registered")
			}
		}
		t := now()
		if user.CreatedAt.IsZero() {
			user.CreatedAt = t
		}
		user.UpdatedAt = t
		st.users[user.ID] = *user
		return nil
	})
}

func (r repo) FindUser(_ context.Context, id string) (*models.User, error) {
	var out *models.User
	err := r.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return forum.NotFoundf("User not found")
		}
		out = &u
		return nil
	})
	return out, err
}

func (r repo) findUserBy(match func(models.User) bool) (*models.User, error) {
	var out *models.User
	err := r.read(func(st *state) error {
		for _, u := range st.users {
			if match(u) {
				u := u
				out = &u
				return nil
			}
		}
		return forum.NotFoundf("User not found")
	})
	return out, err
}

func (r repo) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return r.findUserBy(func(u models.User) bool { return strings.EqualFold(u.Username, username) })
}

func (r repo) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return r.findUserBy(func(u models.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r repo) UpdateUser(_ context.Context, id string, patch forum.UserPatch) error {
	return r.write(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return forum.NotFoundf("User not found")
		}
		for _, other := range st.users {
			if other.ID == id {
				continue
			}
			if patch.Username != nil && strings.EqualFold(other.Username, *patch.Username) {
				return forum.Conflictf("username already taken")
			}
			if patch.Email != nil && strings.EqualFold(other.Email, *patch.Email) {
				return forum.Conflictf("email already taken")
			}
		}
		if patch.Username != nil {
			u.Username = *patch.Username
		}
		if patch.Email != nil {
			u.Email = *patch.Email
		}
		if patch.FullName != nil {
			u.FullName = *patch.FullName
		}
		if patch.HashedPassword != nil {
			u.HashedPassword = *patch.HashedPassword
		}
		if patch.Phone != nil {
			u.Phone = *patch.Phone
		}
		u.UpdatedAt = now()
		st.users[id] = u
		return nil
	})
}

func (r repo) SetUserActive(_ context.Context, id string, active bool) error {
	return r.write(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return forum.NotFoundf("User not found")
		}
		u.IsActive = active
		u.UpdatedAt = now()
		st.users[id] = u
		return nil
	})
}

func (r repo) ListUsers(_ context.Context, skip, limit int) ([]models.User, error) {
	var out []models.User
	err := r.read(func(st *state) error {
		out = make([]models.User, 0, len(st.users))
		for _, u := range st.users {
			out = append(out, u)
		}
		sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
		out = window(out, skip, limit)
		return nil
	})
	return out, err
}

// Questions

func (r repo) CreateQuestion(_ context.Context, q *models.Question) error {
	return r.write(func(st *state) error {
		if _, ok := st.questions[q.ID]; ok {
			return forum.Conflictf("question %s already exists", q.ID)
		}
		t := now()
		if q.CreatedAt.IsZero() {
			q.CreatedAt = t
		}
		q.UpdatedAt = t
		st.questions[q.ID] = copyQuestion(*q)
		return nil
	})
}

func (r repo) FindQuestion(_ context.Context, id string) (*models.Question, error) {
	var out *models.Question
	err := r.read(func(st *state) error {
		q, ok := st.questions[id]
		if !ok {
			return forum.NotFoundf("Question not found")
		}
		q = copyQuestion(q)
		out = &q
		return nil
	})
	return out, err
}

func (r repo) ListQuestions(_ context.Context, f models.QuestionFilter) ([]models.Question, error) {
	var out []models.Question
	err := r.read(func(st *state) error {
		search := strings.ToLower(f.Search)
		for _, q := range st.questions {
			if search != "" && !strings.Contains(strings.ToLower(q.Title+" "+q.Description), search) {
				continue
			}
			if len(f.Tags) > 0 && !overlaps(q.Tags, f.Tags) {
				continue
			}
			out = append(out, copyQuestion(q))
		}
		desc := f.SortOrder != "asc"
		sort.Slice(out, func(i, j int) bool {
			a, b := out[i], out[j]
			var less, equal bool
			switch f.SortBy {
			case "votes":
				less, equal = a.Votes < b.Votes, a.Votes == b.Votes
			case "views":
				less, equal = a.Views < b.Views, a.Views == b.Views
			case "answers_count":
				less, equal = a.AnswersCount < b.AnswersCount, a.AnswersCount == b.AnswersCount
			default:
				less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
			}
			if equal {
				return a.ID < b.ID
			}
			if desc {
				return !less
			}
			return less
		})
		out = window(out, f.Skip, f.Limit)
		return nil
	})
	return out, err
}

func (r repo) UpdateQuestion(_ context.Context, id string, patch models.UpdateQuestionRequest) error {
	return r.write(func(st *state) error {
		q, ok := st.questions[id]
		if !ok {
			return forum.NotFoundf("Question not found")
		}
		if patch.Title != nil {
			q.Title = *patch.Title
		}
		if patch.Description != nil {
			q.Description = *patch.Description
		}
		if patch.Tags != nil {
			q.Tags = append([]string(nil), patch.Tags...)
		}
		q.UpdatedAt = now()
		st.questions[id] = q
		return nil
	})
}

func (r repo) DeleteQuestion(_ context.Context, id string) (bool, error) {
	var deleted bool
	err := r.write(func(st *state) error {
		_, deleted = st.questions[id]
		delete(st.questions, id)
		return nil
	})
	return deleted, err
}

func (r repo) AddQuestionCounter(_ context.Context, id string, counter forum.Counter, delta int) (bool, error) {
	var ok bool
	err := r.write(func(st *state) error {
		var q models.Question
		q, ok = st.questions[id]
		if !ok {
			return nil
		}
		switch counter {
		case forum.CounterVotes:
			q.Votes += delta
		case forum.CounterViews:
			q.Views += delta
		case forum.CounterAnswers:
			q.AnswersCount += delta
		default:
			return forum.Validationf("unknown counter %q", counter)
		}
		st.questions[id] = q
		return nil
	})
	return ok, err
}

func (r repo) SetQuestionAcceptance(_ context.Context, id string, expected, next *string, answered bool) (bool, error) {
	var swapped bool
	err := r.write(func(st *state) error {
		q, ok := st.questions[id]
		if !ok || !sameID(q.AcceptedAnswerID, expected) {
			return nil
		}
		q.AcceptedAnswerID = cloneID(next)
		q.IsAnswered = answered
		q.UpdatedAt = now()
		st.questions[id] = q
		swapped = true
		return nil
	})
	return swapped, err
}

// Answers

func (r repo) CreateAnswer(_ context.Context, a *models.Answer) error {
	return r.write(func(st *state) error {
		if _, ok := st.answers[a.ID]; ok {
			return forum.Conflictf("answer %s already exists", a.ID)
		}
		t := now()
		if a.CreatedAt.IsZero() {
			a.CreatedAt = t
		}
		a.UpdatedAt = t
		st.answers[a.ID] = *a
		return nil
	})
}

func (r repo) FindAnswer(_ context.Context, id string) (*models.Answer, error) {
	var out *models.Answer
	err := r.read(func(st *state) error {
		a, ok := st.answers[id]
		if !ok {
			return forum.NotFoundf("Answer not found")
		}
		out = &a
		return nil
	})
	return out, err
}

func (r repo) ListAnswers(_ context.Context, questionID string, skip, limit int) ([]models.Answer, error) {
	var out []models.Answer
	err := r.read(func(st *state) error {
		out = answersOf(st, questionID)
		sort.Slice(out, func(i, j int) bool {
			if out[i].Votes != out[j].Votes {
				return out[i].Votes > out[j].Votes
			}
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.Before(out[j].CreatedAt)
			}
			return out[i].ID < out[j].ID
		})
		out = window(out, skip, limit)
		return nil
	})
	return out, err
}

func (r repo) AnswerIDs(_ context.Context, questionID string) ([]string, error) {
	var ids []string
	err := r.read(func(st *state) error {
		for _, a := range answersOf(st, questionID) {
			ids = append(ids, a.ID)
		}
		sort.Strings(ids)
		return nil
	})
	return ids, err
}

func (r repo) UpdateAnswerContent(_ context.Context, id, content string) error {
	return r.write(func(st *state) error {
		a, ok := st.answers[id]
		if !ok {
			return forum.NotFoundf("Answer not found")
		}
		a.Content = content
		a.UpdatedAt = now()
		st.answers[id] = a
		return nil
	})
}

func (r repo) DeleteAnswer(_ context.Context, id string) (bool, error) {
	var deleted bool
	err := r.write(func(st *state) error {
		_, deleted = st.answers[id]
		delete(st.answers, id)
		return nil
	})
	return deleted, err
}

func (r repo) DeleteAnswersByQuestion(_ context.Context, questionID string) (int64, error) {
	var n int64
	err := r.write(func(st *state) error {
		for id, a := range st.answers {
			if a.QuestionID == questionID {
				delete(st.answers, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r repo) AddAnswerVotes(_ context.Context, id string, delta int) (bool, error) {
	var ok bool
	err := r.write(func(st *state) error {
		var a models.Answer
		if a, ok = st.answers[id]; ok {
			a.Votes += delta
			st.answers[id] = a
		}
		return nil
	})
	return ok, err
}

func (r repo) SetAnswerAccepted(_ context.Context, id string, accepted bool) error {
	return r.write(func(st *state) error {
		a, ok := st.answers[id]
		if !ok {
			return forum.NotFoundf("Answer not found")
		}
		if accepted {
			for oid, other := range st.answers {
				if oid != id && other.QuestionID == a.QuestionID && other.IsAccepted {
					return forum.Conflictf("question %s already has an accepted answer", a.QuestionID)
				}
			}
		}
		a.IsAccepted = accepted
		st.answers[id] = a
		return nil
	})
}

func (r repo) ClearAcceptedAnswers(_ context.Context, questionID string) error {
	return r.write(func(st *state) error {
		for id, a := range st.answers {
			if a.QuestionID == questionID && a.IsAccepted {
				a.IsAccepted = false
				st.answers[id] = a
			}
		}
		return nil
	})
}

// Votes

func (r repo) FindVote(_ context.Context, subject forum.Subject, voterID string) (forum.Polarity, error) {
	p := forum.PolarityNone
	err := r.read(func(st *state) error {
		v, ok := st.votes[voteKey{subject.Kind, subject.ID, voterID}]
		if !ok {
			return nil
		}
		var err error
		p, err = forum.PolarityFromInt(v.Value)
		return err
	})
	return p, err
}

func (r repo) PutVote(ctx context.Context, subject forum.Subject, voterID string, value forum.Polarity) error {
	if value == forum.PolarityNone {
		return r.DeleteVote(ctx, subject, voterID)
	}
	return r.write(func(st *state) error {
		key := voteKey{subject.Kind, subject.ID, voterID}
		t := now()
		v, ok := st.votes[key]
		if !ok {
			v = models.Vote{SubjectType: subject.Kind, SubjectID: subject.ID, UserID: voterID, CreatedAt: t}
		}
		v.Value = value.Int()
		v.UpdatedAt = t
		st.votes[key] = v
		return nil
	})
}

func (r repo) DeleteVote(_ context.Context, subject forum.Subject, voterID string) error {
	return r.write(func(st *state) error {
		delete(st.votes, voteKey{subject.Kind, subject.ID, voterID})
		return nil
	})
}

func (r repo) DeleteVotes(_ context.Context, kind models.SubjectKind, subjectIDs []string) error {
	ids := make(map[string]struct{}, len(subjectIDs))
	for _, id := range subjectIDs {
		ids[id] = struct{}{}
	}
	return r.write(func(st *state) error {
		for k := range st.votes {
			if _, ok := ids[k.subject]; ok && k.kind == kind {
				delete(st.votes, k)
			}
		}
		return nil
	})
}

func (r repo) ListVotes(_ context.Context, subject forum.Subject) (map[string]forum.Polarity, error) {
	out := make(map[string]forum.Polarity)
	err := r.read(func(st *state) error {
		for k, v := range st.votes {
			if k.kind != subject.Kind || k.subject != subject.ID {
				continue
			}
			p, err := forum.PolarityFromInt(v.Value)
			if err != nil {
				return err
			}
			out[k.voter] = p
		}
		return nil
	})
	return out, err
}

// Notifications

func (r repo) CreateNotification(_ context.Context, n *models.Notification) error {
	return r.write(func(st *state) error {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now()
		}
		st.notifications[n.ID] = copyNotification(*n)
		return nil
	})
}

func (r repo) FindNotification(_ context.Context, id string) (*models.Notification, error) {
	var out *models.Notification
	err := r.read(func(st *state) error {
		n, ok := st.notifications[id]
		if !ok {
			return forum.NotFoundf("Notification not found")
		}
		n = copyNotification(n)
		out = &n
		return nil
	})
	return out, err
}

func (r repo) ListNotifications(_ context.Context, f models.NotificationFilter) ([]models.Notification, error) {
	var out []models.Notification
	err := r.read(func(st *state) error {
		for _, n := range st.notifications {
			if n.RecipientID != f.RecipientID || (f.UnreadOnly && n.IsRead) {
				continue
			}
			out = append(out, copyNotification(n))
		}
		sort.Slice(out, func(i, j int) bool { return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID) })
		out = window(out, f.Skip, f.Limit)
		return nil
	})
	return out, err
}

func (r repo) CountUnread(_ context.Context, recipientID string) (int64, error) {
	var n int64
	err := r.read(func(st *state) error {
		for _, x := range st.notifications {
			if x.RecipientID == recipientID && !x.IsRead {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r repo) MarkNotificationRead(_ context.Context, id string) error {
	return r.write(func(st *state) error {
		n, ok := st.notifications[id]
		if !ok {
			return forum.NotFoundf("Notification not found")
		}
		n.IsRead = true
		st.notifications[id] = n
		return nil
	})
}

func (r repo) MarkAllNotificationsRead(_ context.Context, recipientID string) (int64, error) {
	var n int64
	err := r.write(func(st *state) error {
		for id, x := range st.notifications {
			if x.RecipientID == recipientID && !x.IsRead {
				x.IsRead = true
				st.notifications[id] = x
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r repo) DeleteNotification(_ context.Context, id string) (bool, error) {
	var deleted bool
	err := r.write(func(st *state) error {
		_, deleted = st.notifications[id]
		delete(st.notifications, id)
		return nil
	})
	return deleted, err
}

func (r repo) Stats(_ context.Context) (models.Stats, error) {
	var s models.Stats
	err := r.read(func(st *state) error {
		s.TotalUsers = int64(len(st.users))
		for _, u := range st.users {
			if u.IsActive {
				s.ActiveUsers++
			}
		}
		s.BannedUsers = s.TotalUsers - s.ActiveUsers
		s.TotalQuestions = int64(len(st.questions))
		for _, q := range st.questions {
			if q.IsAnswered {
				s.AnsweredQuestions++
			}
		}
		s.UnansweredQuestions = s.TotalQuestions - s.AnsweredQuestions
		s.TotalAnswers = int64(len(st.answers))
		return nil
	})
	return s, err
}

func answersOf(st *state, questionID string) []models.Answer {
	var out []models.Answer
	for _, a := range st.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out
}
