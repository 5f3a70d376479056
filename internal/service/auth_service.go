package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-api/internal/models"
	"github.com/noah-isme/blog-api/internal/token"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
	"github.com/noah-isme/blog-api/pkg/hash"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByEmailAndRefreshToken(ctx context.Context, email, refreshToken string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRefreshToken(ctx context.Context, email, refreshToken string) error
	RotateRefreshToken(ctx context.Context, email, oldToken, newToken string) (bool, error)
}

// AuthService orchestrates registration, login and refresh-token rotation.
type AuthService struct {
	repo      authUserRepository
	tokens    *token.Issuer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, tokens *token.Issuer, validate *validator.Validate, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, tokens: tokens, validator: validate, logger: logger}
}

// Register creates a new account with a hashed password and no active
// refresh token.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid register payload")
	}

	// Emails are stored lowercased, so every lookup normalizes first.
	email := strings.ToLower(req.Email)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	digest, err := hash.Hash(req.Password)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: digest,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Status:       1,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	return user, nil
}

// Login authenticates a user and returns a freshly issued token pair. The
// new refresh token overwrites any previously stored one. Unknown email and
// wrong password fail identically so the response leaks neither.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrUnauthorized
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if !hash.Check(req.Password, user.PasswordHash) {
		return nil, appErrors.ErrUnauthorized
	}

	pair, err := s.issuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRefreshToken(ctx, user.Email, pair.RefreshToken); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}

	return pair, nil
}

// Refresh exchanges a valid refresh token for a new pair. The submitted
// token must verify against the refresh secret and equal the stored value
// for the account named in its claims. Rotation is a compare-and-swap: when
// a concurrent refresh wins, the loser fails instead of clobbering the
// newer token.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshTokenRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	claims, err := s.tokens.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, appErrors.ErrInvalidRefreshToken
	}

	user, err := s.repo.FindByEmailAndRefreshToken(ctx, claims.Email, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidRefreshToken
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	pair, err := s.issuePair(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	swapped, err := s.repo.RotateRefreshToken(ctx, user.Email, req.RefreshToken, pair.RefreshToken)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist refresh token")
	}
	if !swapped {
		s.logger.Warn("refresh token rotated concurrently", zap.String("email", user.Email))
		return nil, appErrors.ErrInvalidRefreshToken
	}

	return pair, nil
}

// ValidateAccessToken parses and validates an access token returning the
// claims. Used by the route guard.
func (s *AuthService) ValidateAccessToken(tokenString string) (*models.JWTClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	return claims, nil
}

func (s *AuthService) issuePair(userID, email string) (*models.TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(userID, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refreshToken, err := s.tokens.IssueRefreshToken(userID, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}
	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
