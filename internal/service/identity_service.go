package service

import (
	"context"
	"strings"
	"time"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/repository"
	"wanderplan/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs and revokes bearer tokens.
type TokenIssuer interface {
	Issue(userID uint, username string) (string, *middleware.Claims, error)
	Revoke(ctx context.Context, claims *middleware.Claims) error
}

// IdentityService handles registration and sessions.
type IdentityService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	now    func() time.Time
}

// RegisterInput is the payload of a sign-up.
type RegisterInput struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,strongpwd"`
}

// PublicUser is the account as shown to its owner.
type PublicUser struct {
	UserID      uint       `json:"user_id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at"`
}

func publicUser(u *models.User) PublicUser {
	return PublicUser{
		UserID:      u.ID,
		Username:    u.Username,
		Email:       u.Email,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      PublicUser `json:"user"`
}

func NewIdentityService(users repository.UserRepository, tokens TokenIssuer) *IdentityService {
	return &IdentityService{users: users, tokens: tokens, now: time.Now}
}

func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	if existing, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("Email already registered", nil)
	}
	if existing, err := s.users.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, models.NewConflictError("Username already taken", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: string(hash),
		IsActive: true,
	}
	profile := &models.UserProfile{Username: in.Username, Email: in.Email}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.NewValidationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return s.issue(user)
}

// Logout revokes the presented token.
func (s *IdentityService) Logout(ctx context.Context, claims *middleware.Claims) error {
	if claims == nil {
		return models.NewUnauthorizedError("Authorization required")
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *IdentityService) issue(user *models.User) (*AuthResult, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &AuthResult{Token: token, ExpiresAt: claims.ExpiresAt, User: publicUser(user)}, nil
}
