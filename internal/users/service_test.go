package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/models"
)

// MockUserStore keeps accounts in memory, keyed by id and email.
type MockUserStore struct {
	byID      map[string]*models.User
	byEmail   map[string]*models.User
	insertErr error
}

func NewMockUserStore() *MockUserStore {
	return &MockUserStore{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (m *MockUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, exists := m.byID[id]
	if !exists {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, exists := m.byEmail[email]
	if !exists {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (m *MockUserStore) Insert(ctx context.Context, user *models.User) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.byID[user.ID] = user
	m.byEmail[user.Email] = user
	return nil
}

func newTestService(db *MockUserStore) *Service {
	return NewService(db, nil, "test-secret", time.Hour, logger.NewLogger())
}

func TestRegisterIssuesUsableToken(t *testing.T) {
	db := NewMockUserStore()
	svc := newTestService(db)

	resp, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:    "Buyer@Example.com",
		FullName: "  Test Buyer  ",
		Password: "correct-horse",
		Role:     "buyer",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int(time.Hour.Seconds()), resp.ExpiresIn)

	// Email is normalized and the name trimmed before storage
	user, err := db.GetByEmail(context.Background(), "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Test Buyer", user.FullName)
	assert.Equal(t, models.RoleBuyer, user.Role)
	assert.Equal(t, "local", user.Provider)

	// Password is stored hashed, never verbatim
	assert.NotEqual(t, "correct-horse", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct-horse")))

	// The issued token parses back to the same principal
	principal, err := auth.ParseToken(resp.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, models.RoleBuyer, principal.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(NewMockUserStore())
	ctx := context.Background()

	cases := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"missing email", models.RegisterRequest{Password: "long-enough", Role: "buyer"}},
		{"malformed email", models.RegisterRequest{Email: "not-an-email", Password: "long-enough", Role: "buyer"}},
		{"short password", models.RegisterRequest{Email: "a@b.com", Password: "short", Role: "buyer"}},
		{"unknown role", models.RegisterRequest{Email: "a@b.com", Password: "long-enough", Role: "superuser"}},
		{"admin self-registration", models.RegisterRequest{Email: "a@b.com", Password: "long-enough", Role: "admin"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	db := NewMockUserStore()
	svc := newTestService(db)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Email: "dup@example.com", Password: "long-enough", Role: "seller"})
	require.NoError(t, err)

	// Same address with different case is still taken
	_, err = svc.Register(ctx, models.RegisterRequest{Email: "DUP@example.com", Password: "long-enough", Role: "buyer"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	db := NewMockUserStore()
	svc := newTestService(db)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{Email: "login@example.com", Password: "long-enough", Role: "buyer"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, models.LoginRequest{Email: "Login@Example.com", Password: "long-enough"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "login@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "long-enough"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsOAuthOnlyAccount(t *testing.T) {
	db := NewMockUserStore()
	require.NoError(t, db.Insert(context.Background(), &models.User{
		ID:       "oauth-user",
		Email:    "oauth@example.com",
		Role:     models.RoleBuyer,
		Provider: "oidc",
	}))
	svc := newTestService(db)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "oauth@example.com", Password: "anything-at-all"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestOAuthLoginUnconfigured(t *testing.T) {
	svc := newTestService(NewMockUserStore())

	_, err := svc.OAuthLogin(context.Background(), models.OAuthLoginRequest{IDToken: "whatever"})
	assert.Error(t, err)
}

func TestMe(t *testing.T) {
	db := NewMockUserStore()
	user := &models.User{ID: "u1", Email: "me@example.com", Role: models.RoleSeller}
	require.NoError(t, db.Insert(context.Background(), user))
	svc := newTestService(db)

	got, err := svc.Me(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)

	_, err = svc.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
