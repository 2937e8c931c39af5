package forum

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/models"
)

// PasswordHasher hides the credential scheme from the core.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hashed, plain string) error
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}

type UserService struct {
	store       Store
	hasher      PasswordHasher
	tokens      TokenIssuer
	adminEmails map[string]struct{}
	log         *zap.Logger
}

func NewUserService(store Store, hasher PasswordHasher, tokens TokenIssuer, adminEmails []string, log *zap.Logger) *UserService {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = struct{}{}
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{store: store, hasher: hasher, tokens: tokens, adminEmails: admins, log: log}
}

func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.store.FindUserByUsername(ctx, req.Username); err == nil {
		return nil, Validationf("Username already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.FindUserByEmail(ctx, req.Email); err == nil {
		return nil, Validationf("Email already registered")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	role := models.RoleUser
	if _, ok := s.adminEmails[req.Email]; ok {
		role = models.RoleAdmin
	}
	user := &models.User{
		ID:             NewID(),
		Username:       req.Username,
		Email:          req.Email,
		FullName:       req.FullName,
		HashedPassword: hashed,
		Phone:          req.Phone,
		Role:           role,
		IsActive:       true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, Validationf("Username or email already registered")
		}
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Authenticate checks a username/password pair and issues a bearer token.
func (s *UserService) Authenticate(ctx context.Context, req models.LoginRequest) (models.AuthResponse, error) {
	if err := validateStruct(req); err != nil {
		return models.AuthResponse{}, err
	}
	user, err := s.store.FindUserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, ErrNotFound) {
		return models.AuthResponse{}, Unauthenticatedf("Incorrect username or password")
	}
	if err != nil {
		return models.AuthResponse{}, err
	}
	if err := s.hasher.Compare(user.HashedPassword, req.Password); err != nil {
		s.log.Warn("login failed", zap.String("user_id", user.ID))
		return models.AuthResponse{}, Unauthenticatedf("Incorrect username or password")
	}
	if !user.IsActive {
		return models.AuthResponse{}, InactiveUser()
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{AccessToken: token, TokenType: "bearer", User: *user}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	id, err := ParseID("user", id)
	if err != nil {
		return nil, err
	}
	return s.store.FindUser(ctx, id)
}

// UpdateSelf applies a partial profile update for the calling user.
func (s *UserService) UpdateSelf(ctx context.Context, actor Identity, req models.UpdateUserRequest) (*models.User, error) {
	if req.Empty() {
		return nil, Validationf("No data to update")
	}
	if req.Username != nil {
		v := strings.TrimSpace(*req.Username)
		req.Username = &v
	}
	if req.Email != nil {
		v := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &v
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if req.Username != nil {
		if taken, err := s.takenByOther(ctx, actor.UserID, s.store.FindUserByUsername, *req.Username); err != nil {
			return nil, err
		} else if taken {
			return nil, Validationf("Username already taken")
		}
	}
	if req.Email != nil {
		if taken, err := s.takenByOther(ctx, actor.UserID, s.store.FindUserByEmail, *req.Email); err != nil {
			return nil, err
		} else if taken {
			return nil, Validationf("Email already taken")
		}
	}

	patch := UserPatch{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
	}
	if req.Password != nil {
		hashed, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		patch.HashedPassword = &hashed
	}
	if err := s.store.UpdateUser(ctx, actor.UserID, patch); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, Validationf("Username or email already taken")
		}
		return nil, err
	}
	return s.store.FindUser(ctx, actor.UserID)
}

func (s *UserService) takenByOther(ctx context.Context, self string, find func(context.Context, string) (*models.User, error), value string) (bool, error) {
	other, err := find(ctx, value)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return other.ID != self, nil
}

// Identify implements IdentityResolver. Unknown or malformed subjects are
// Unauthenticated; inactive users resolve normally and are rejected by the caller.
func (s *UserService) Identify(ctx context.Context, userID string) (Identity, error) {
	userID, err := ParseID("user", userID)
	if err != nil {
		return Identity{}, Unauthenticatedf("Could not validate credentials")
	}
	user, err := s.store.FindUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return Identity{}, Unauthenticatedf("Could not validate credentials")
	}
	if err != nil {
		return Identity{}, err
	}
	return IdentityOf(user), nil
}
