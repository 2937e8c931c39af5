package models

import (
	"time"

	"github.com/lib/pq"
)

type Question struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	AuthorID       string         `gorm:"type:uuid;index;not null" json:"author_id"`
	AuthorUsername string         `gorm:"size:50" json:"author_username"`
	Title          string         `gorm:"size:300;not null" json:"title"`
	Description    string         `gorm:"type:text;not null" json:"description"`
	Tags           pq.StringArray `gorm:"type:text[]" json:"tags"`
	Votes          int            `gorm:"not null;default:0" json:"votes"`
	Views          int            `gorm:"not null;default:0" json:"views"`
	AnswersCount   int            `gorm:"not null;default:0" json:"answers_count"`
	IsAnswered     bool           `gorm:"not null" json:"is_answered"`

	// AcceptedAnswerID is the single source of truth for acceptance; Answer.IsAccepted mirrors it.
	AcceptedAnswerID *string `gorm:"type:uuid" json:"accepted_answer_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateQuestionRequest struct {
	Title       string   `json:"title" validate:"required,min=10,max=300"`
	Description string   `json:"description" validate:"required,min=20"`
	Tags        []string `json:"tags" validate:"required,min=1,max=5,dive,required,max=30"`
}

// UpdateQuestionRequest carries a partial update; nil fields are left untouched.
type UpdateQuestionRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=10,max=300"`
	Description *string  `json:"description" validate:"omitempty,min=20"`
	Tags        []string `json:"tags" validate:"omitempty,min=1,max=5,dive,required,max=30"`
}

func (r UpdateQuestionRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Tags == nil
}

// QuestionFilter drives question listing.
type QuestionFilter struct {
	Skip      int
	Limit     int
	Search    string
	Tags      []string
	SortBy    string // created_at, votes, views, answers_count
	SortOrder string // asc, desc
}
