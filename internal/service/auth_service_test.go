package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-api/internal/models"
	"github.com/noah-isme/blog-api/internal/token"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/hash"
)

type mockAuthRepo struct {
	users map[string]*models.User
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{users: make(map[string]*models.User)}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := m.users[email]; ok {
		return user, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByEmailAndRefreshToken(ctx context.Context, email, refreshToken string) (*models.User, error) {
	user, ok := m.users[email]
	if !ok || user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockAuthRepo) UpdateRefreshToken(ctx context.Context, email, refreshToken string) error {
	if user, ok := m.users[email]; ok {
		user.RefreshToken = &refreshToken
	}
	return nil
}

func (m *mockAuthRepo) RotateRefreshToken(ctx context.Context, email, oldToken, newToken string) (bool, error) {
	user, ok := m.users[email]
	if !ok || user.RefreshToken == nil || *user.RefreshToken != oldToken {
		return false, nil
	}
	user.RefreshToken = &newToken
	return true, nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	tokens := token.New(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessExpiry:  time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "blog-api",
	})
	return NewAuthService(repo, tokens, validator.New(), zap.NewNop())
}

func registerUser(t *testing.T, repo *mockAuthRepo, email, password string) {
	t.Helper()
	digest, err := hash.Hash(password)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &models.User{Email: email, PasswordHash: digest, Status: 1}))
}

func TestRegisterExcludesSensitiveFields(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:     "a@x.com",
		Password:  "secret1",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.PasswordHash)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.Nil(t, user.RefreshToken)
	assert.Equal(t, 1, user.Status)
}

func TestRegisterLoginMixedCaseEmail(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Email:     "Ada.Lovelace@X.com",
		Password:  "secret1",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace@x.com", user.Email)

	// Logging in with the same mixed-case email must reach the stored account.
	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "Ada.Lovelace@X.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// A re-registration differing only in case is a conflict, not a new account.
	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Email: "ADA.LOVELACE@x.com", Password: "secret1", FirstName: "A", LastName: "L",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	registerUser(t, repo, "a@x.com", "secret1")

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "a@x.com", Password: "secret1", FirstName: "A", LastName: "B",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestLoginSuccessPersistsRefreshToken(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	registerUser(t, repo, "a@x.com", "secret1")

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	require.NotNil(t, repo.users["a@x.com"].RefreshToken)
	assert.Equal(t, pair.RefreshToken, *repo.users["a@x.com"].RefreshToken)
}

func TestLoginFailureIsIndistinguishable(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	registerUser(t, repo, "a@x.com", "secret1")

	_, unknownErr := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@x.com", Password: "secret1"})
	_, wrongPassErr := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "wrong-password"})

	require.Error(t, unknownErr)
	require.Error(t, wrongPassErr)
	unknown := appErrors.FromError(unknownErr)
	wrongPass := appErrors.FromError(wrongPassErr)
	assert.Equal(t, unknown.Code, wrongPass.Code)
	assert.Equal(t, unknown.Message, wrongPass.Message)
	assert.Equal(t, "User Not Found", unknown.Message)
	assert.Equal(t, 401, unknown.Status)
}

func TestRefreshRotatesStoredToken(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	registerUser(t, repo, "a@x.com", "secret1")

	first, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	second, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: first.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The superseded token no longer matches the stored value.
	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: first.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRefreshToken.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "Refresh Token is not valid", appErrors.FromError(err).Message)
}

func TestRefreshRejectsForeignToken(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	registerUser(t, repo, "a@x.com", "secret1")

	foreign := token.New(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "some-other-secret",
		AccessExpiry:  time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
	forged, err := foreign.IssueRefreshToken("user-a@x.com", "a@x.com")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: forged})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRefreshToken.Code, appErrors.FromError(err).Code)
}

func TestRefreshRejectsValidTokenWithoutStoredMatch(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	registerUser(t, repo, "a@x.com", "secret1")

	// Well signed, but never persisted for the account.
	orphan, err := svc.tokens.IssueRefreshToken("user-a@x.com", "a@x.com")
	require.NoError(t, err)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: orphan})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRefreshToken.Code, appErrors.FromError(err).Code)
}

func TestRegisterLoginRefreshScenario(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Email: "a@x.com", Password: "secret1", FirstName: "A", LastName: "X",
	})
	require.NoError(t, err)

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	rotated, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	_, err = svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: pair.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidRefreshToken.Code, appErrors.FromError(err).Code)
}

func TestValidateAccessTokenClaims(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)
	registerUser(t, repo, "a@x.com", "secret1")

	pair, err := svc.Login(context.Background(), models.LoginRequest{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, repo.users["a@x.com"].ID, claims.UserID)
}
