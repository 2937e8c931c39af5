package models

import "time"

// SubjectKind names the entity a vote is cast on.
type SubjectKind string

const (
	SubjectQuestion SubjectKind = "question"
	SubjectAnswer   SubjectKind = "answer"
)

// Vote is one voter's entry in a subject's vote map. An absent row means no active vote.
type Vote struct {
	SubjectType SubjectKind `gorm:"primaryKey;size:10" json:"subject_type"`
	SubjectID   string      `gorm:"primaryKey;type:uuid" json:"subject_id"`
	UserID      string      `gorm:"primaryKey;type:uuid;index" json:"user_id"`
	Value       int         `gorm:"not null;check:vote_value_sign,value IN (-1, 1)" json:"value"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
