package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID             string `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email          string `gorm:"uniqueIndex;size:100;not null" json:"email"`
	FullName       string `gorm:"size:100" json:"full_name"`
	HashedPassword string `gorm:"not null" json:"-"`
	Phone          string `gorm:"size:32" json:"-"` // E.164, used for SMS notifications
	Role           Role   `gorm:"size:10;not null" json:"role"`
	IsActive       bool   `gorm:"not null" json:"is_active"`
	Reputation     int    `gorm:"not null;default:0" json:"reputation"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone" validate:"omitempty,e164"`
}

type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UpdateUserRequest carries a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	Password *string `json:"password" validate:"omitempty,min=6"`
	Phone    *string `json:"phone" validate:"omitempty,e164"`
}

func (r UpdateUserRequest) Empty() bool {
	return r.Username == nil && r.Email == nil && r.FullName == nil && r.Password == nil && r.Phone == nil
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}
