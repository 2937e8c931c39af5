package memstore

import (
	"context"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Reconcile recomputes every stored aggregate from the vote rows and live answers.
func (s *Store) Reconcile(ctx context.Context, policy forum.AcceptedDeletePolicy) (forum.ReconcileReport, error) {
	var report forum.ReconcileReport
	err := s.Atomic(ctx, func(forum.Repository) error {
		st := s.data

		sums := make(map[voteKey]int)
		for k, v := range st.votes {
			sums[voteKey{kind: k.kind, subject: k.subject}] += v.Value
		}
		counts := make(map[string]int)
		accepted := make(map[string]string)
		for _, a := range st.answers {
			counts[a.QuestionID]++
		}

		for id, a := range st.answers {
			if want := sums[voteKey{kind: models.SubjectAnswer, subject: id}]; a.Votes != want {
				a.Votes = want
				st.answers[id] = a
				report.AnswerVotesRepaired++
			}
		}

		for id, q := range st.questions {
			changed := false
			if want := sums[voteKey{kind: models.SubjectQuestion, subject: id}]; q.Votes != want {
				q.Votes = want
				report.QuestionVotesRepaired++
				changed = true
			}
			if want := counts[id]; q.AnswersCount != want {
				q.AnswersCount = want
				report.AnswerCountsRepaired++
				changed = true
			}

			acceptanceFixed := false
			if q.AcceptedAnswerID != nil {
				if a, ok := st.answers[*q.AcceptedAnswerID]; !ok || a.QuestionID != id {
					q.AcceptedAnswerID = nil
					acceptanceFixed = true
				}
			}
			if q.AcceptedAnswerID != nil {
				accepted[id] = *q.AcceptedAnswerID
			}
			answered := q.IsAnswered
			if q.AcceptedAnswerID != nil {
				answered = true
			} else if policy == forum.ResetAnswered {
				answered = false
			}
			if answered != q.IsAnswered {
				q.IsAnswered = answered
				acceptanceFixed = true
			}
			if acceptanceFixed {
				report.AcceptanceRepaired++
				changed = true
			}
			if changed {
				st.questions[id] = q
			}
		}

		for id, a := range st.answers {
			want := accepted[a.QuestionID] == id
			if a.IsAccepted != want {
				a.IsAccepted = want
				st.answers[id] = a
				report.AcceptanceRepaired++
			}
		}
		return nil
	})
	return report, err
}
