package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const (
	repairAnswerVotes = `
UPDATE answers SET votes = s.total
FROM (
	SELECT a.id, COALESCE(SUM(v.value), 0) AS total
	FROM answers a
	LEFT JOIN votes v ON v.subject_type = ? AND v.subject_id = a.id
	GROUP BY a.id
) s
WHERE answers.id = s.id AND answers.votes <> s.total`

	repairQuestionVotes = `
UPDATE questions SET votes = s.total
FROM (
	SELECT q.id, COALESCE(SUM(v.value), 0) AS total
	FROM questions q
	LEFT JOIN votes v ON v.subject_type = ? AND v.subject_id = q.id
	GROUP BY q.id
) s
WHERE questions.id = s.id AND questions.votes <> s.total`

	repairAnswerCounts = `
UPDATE questions SET answers_count = s.total
FROM (
	SELECT q.id, COUNT(a.id) AS total
	FROM questions q
	LEFT JOIN answers a ON a.question_id = q.id
	GROUP BY q.id
) s
WHERE questions.id = s.id AND questions.answers_count <> s.total`

	dropStaleAcceptance = `
UPDATE questions q SET accepted_answer_id = NULL
WHERE q.accepted_answer_id IS NOT NULL
  AND NOT EXISTS (SELECT 1 FROM answers a WHERE a.id = q.accepted_answer_id AND a.question_id = q.id)`

	// clear before set so the partial unique index never sees two accepted rows
	clearUnmirroredAccepted = `
UPDATE answers a SET is_accepted = false
WHERE a.is_accepted
  AND NOT EXISTS (SELECT 1 FROM questions q WHERE q.id = a.question_id AND q.accepted_answer_id = a.id)`

	setMirroredAccepted = `
UPDATE answers a SET is_accepted = true
FROM questions q
WHERE q.accepted_answer_id = a.id AND NOT a.is_accepted`

	markAnswered = `
UPDATE questions SET is_answered = true
WHERE accepted_answer_id IS NOT NULL AND NOT is_answered`

	resetUnanswered = `
UPDATE questions SET is_answered = false
WHERE accepted_answer_id IS NULL AND is_answered`
)

type repairStep struct {
	name string
	sql  string
	args []any
	dst  *int64
}

// Reconcile recomputes stored aggregates from live rows in one transaction.
func (s *Store) Reconcile(ctx context.Context, policy forum.AcceptedDeletePolicy) (forum.ReconcileReport, error) {
	var report forum.ReconcileReport
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// counters move under row locks elsewhere; take the same locks up front
		if err := tx.Exec(`LOCK TABLE questions, answers, votes IN SHARE ROW EXCLUSIVE MODE`).Error; err != nil {
			return fmt.Errorf("lock tables: %w", err)
		}

		steps := []repairStep{
			{"answer votes", repairAnswerVotes, []any{models.SubjectAnswer}, &report.AnswerVotesRepaired},
			{"question votes", repairQuestionVotes, []any{models.SubjectQuestion}, &report.QuestionVotesRepaired},
			{"answer counts", repairAnswerCounts, nil, &report.AnswerCountsRepaired},
			{"stale acceptance", dropStaleAcceptance, nil, &report.AcceptanceRepaired},
			{"unmirrored acceptance", clearUnmirroredAccepted, nil, &report.AcceptanceRepaired},
			{"mirrored acceptance", setMirroredAccepted, nil, &report.AcceptanceRepaired},
			{"answered flag", markAnswered, nil, &report.AcceptanceRepaired},
		}
		if policy == forum.ResetAnswered {
			steps = append(steps, repairStep{"unanswered flag", resetUnanswered, nil, &report.AcceptanceRepaired})
		}

		for _, step := range steps {
			res := tx.Exec(step.sql, step.args...)
			if res.Error != nil {
				return fmt.Errorf("reconcile %s: %w", step.name, res.Error)
			}
			*step.dst += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return forum.ReconcileReport{}, err
	}
	return report, nil
}
