package forum

import (
	"context"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// Identity is what the credential collaborator resolves a request to.
type Identity struct {
	UserID   string
	Username string
	Role     models.Role
	IsActive bool
}

func IdentityOf(user *models.User) Identity {
	return Identity{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		IsActive: user.IsActive,
	}
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

func (i Identity) Owns(ownerID string) bool {
	return i.UserID != "" && i.UserID == ownerID
}

// CanModify is true for the owner and for any admin.
func (i Identity) CanModify(ownerID string) bool {
	return i.Owns(ownerID) || i.IsAdmin()
}

// IdentityResolver turns an authenticated subject id into an Identity.
type IdentityResolver interface {
	Identify(ctx context.Context, userID string) (Identity, error)
}
