package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrValidation         = errors.New("invalid registration request")
	ErrNotFound           = errors.New("user not found")
)

type Store interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
}

// Service handles registration and both login paths: password and
// OIDC. Either path ends with the same signed access token.
type Service struct {
	DB       Store
	OIDC     *auth.OIDCVerifier
	Secret   string
	TokenTTL time.Duration
	Logger   *logger.Logger
}

func NewService(db Store, oidc *auth.OIDCVerifier, secret string, tokenTTL time.Duration, log *logger.Logger) *Service {
	return &Service{DB: db, OIDC: oidc, Secret: secret, TokenTTL: tokenTTL, Logger: log}
}

// Register creates a password account. Self-service accounts may only
// pick the buyer or seller role; admins are provisioned out of band.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrValidation)
	}
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", ErrValidation)
	}

	if _, err := s.DB.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
		Role:         role,
		Provider:     "local",
		CreatedAt:    time.Now(),
	}

	if err := s.DB.Insert(ctx, user); err != nil {
		return nil, err
	}

	s.Logger.Info("AUTH", fmt.Sprintf("Registered %s account for %s", role, email))
	return s.issueResponse(user)
}

// Login authenticates a password account.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.DB.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		// OAuth-only account, password login is not available
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.Logger.Warn("AUTH", fmt.Sprintf("Failed login attempt for %s", email))
		return nil, ErrInvalidCredentials
	}

	return s.issueResponse(user)
}

// OAuthLogin verifies a provider-issued ID token and signs the caller
// in, provisioning a buyer account on first contact.
func (s *Service) OAuthLogin(ctx context.Context, req models.OAuthLoginRequest) (*models.TokenResponse, error) {
	if s.OIDC == nil {
		return nil, errors.New("oauth login is not configured")
	}

	identity, err := s.OIDC.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	email := strings.ToLower(identity.Email)
	user, err := s.DB.GetByEmail(ctx, email)
	if err != nil {
		user = &models.User{
			ID:        uuid.New().String(),
			Email:     email,
			FullName:  identity.FullName,
			Role:      models.RoleBuyer,
			Provider:  "oidc",
			CreatedAt: time.Now(),
		}
		if err := s.DB.Insert(ctx, user); err != nil {
			return nil, err
		}
		s.Logger.Info("AUTH", fmt.Sprintf("Provisioned OAuth account for %s", email))
	}

	return s.issueResponse(user)
}

// Me returns the caller's own profile.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.DB.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrNotFound
	}
	return user, nil
}

func (s *Service) issueResponse(user *models.User) (*models.TokenResponse, error) {
	token, err := auth.IssueToken(user, s.Secret, s.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.TokenTTL.Seconds()),
		TokenType:   "Bearer",
		User:        user,
	}, nil
}
