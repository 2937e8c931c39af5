package memstore

import (
	"strconv"
	"time"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

func copyQuestion(q models.Question) models.Question {
	q.Tags = append([]string(nil), q.Tags...)
	q.AcceptedAnswerID = cloneID(q.AcceptedAnswerID)
	return q
}

func copyNotification(n models.Notification) models.Notification {
	n.RelatedQuestionID = cloneID(n.RelatedQuestionID)
	n.RelatedAnswerID = cloneID(n.RelatedAnswerID)
	return n
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func overlaps(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func newerFirst(a, b time.Time, aid, bid string) bool {
	if a.Equal(b) {
		return aid < bid
	}
	return a.After(b)
}

func window[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func itoa(n int) string { return strconv.Itoa(n) }
