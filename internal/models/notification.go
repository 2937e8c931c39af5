package models

import "time"

type NotificationType string

const (
	NotificationAnswer  NotificationType = "answer"
	NotificationComment NotificationType = "comment"
	NotificationMention NotificationType = "mention"
	NotificationVote    NotificationType = "vote"
)

type Notification struct {
	ID                string           `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID       string           `gorm:"type:uuid;index;not null" json:"recipient_id"`
	Type              NotificationType `gorm:"size:10;not null" json:"type"`
	Title             string           `gorm:"size:300;not null" json:"title"`
	Message           string           `gorm:"type:text;not null" json:"message"`
	RelatedQuestionID *string          `gorm:"type:uuid" json:"related_question_id,omitempty"`
	RelatedAnswerID   *string          `gorm:"type:uuid" json:"related_answer_id,omitempty"`
	SenderUsername    string           `gorm:"size:50" json:"sender_username,omitempty"`
	IsRead            bool             `gorm:"not null;index" json:"is_read"`
	CreatedAt         time.Time        `json:"created_at"`
}

type NotificationFilter struct {
	RecipientID string
	Skip        int
	Limit       int
	UnreadOnly  bool
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalUsers          int64 `json:"total_users"`
	ActiveUsers         int64 `json:"active_users"`
	BannedUsers         int64 `json:"banned_users"`
	TotalQuestions      int64 `json:"total_questions"`
	TotalAnswers        int64 `json:"total_answers"`
	AnsweredQuestions   int64 `json:"answered_questions"`
	UnansweredQuestions int64 `json:"unanswered_questions"`
}
