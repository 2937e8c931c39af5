package models

import "time"

type Answer struct {
	ID             string `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID     string `gorm:"type:uuid;index;not null" json:"question_id"`
	AuthorID       string `gorm:"type:uuid;index;not null" json:"author_id"`
	AuthorUsername string `gorm:"size:50" json:"author_username"`
	Content        string `gorm:"type:text;not null" json:"content"`
	Votes          int    `gorm:"not null;default:0" json:"votes"`
	IsAccepted     bool   `gorm:"not null" json:"is_accepted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateAnswerRequest struct {
	Content string `json:"content" validate:"required,min=10"`
}

type UpdateAnswerRequest struct {
	Content *string `json:"content" validate:"omitempty,min=10"`
}

func (r UpdateAnswerRequest) Empty() bool {
	return r.Content == nil
}
