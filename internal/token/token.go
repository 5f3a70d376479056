// Package token issues and verifies the signed credentials used by the auth
// flows: short-lived access tokens and long-lived refresh tokens, signed
// with distinct HS256 secrets.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/blog-api/internal/models"
)

// Config defines signing material and lifetimes for both token kinds.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	Issuer        string
}

// Issuer mints and verifies token pairs.
type Issuer struct {
	config Config
	now    func() time.Time
}

// New constructs an Issuer.
func New(config Config) *Issuer {
	return &Issuer{config: config, now: time.Now}
}

// IssueAccessToken signs {id, email} with the primary secret.
func (i *Issuer) IssueAccessToken(userID, email string) (string, error) {
	return i.sign(userID, email, i.config.AccessSecret, i.config.AccessExpiry)
}

// IssueRefreshToken signs the same claims with the refresh secret and a
// longer expiry.
func (i *Issuer) IssueRefreshToken(userID, email string) (string, error) {
	return i.sign(userID, email, i.config.RefreshSecret, i.config.RefreshExpiry)
}

// VerifyAccessToken validates an access token and returns its claims.
func (i *Issuer) VerifyAccessToken(tokenString string) (*models.JWTClaims, error) {
	return i.verify(tokenString, i.config.AccessSecret)
}

// VerifyRefreshToken validates signature and expiry of a refresh token
// against the refresh secret. It is a pure function of the token, the secret
// and the current time; the stored-token cross-check happens in the auth
// service.
func (i *Issuer) VerifyRefreshToken(tokenString string) (*models.JWTClaims, error) {
	return i.verify(tokenString, i.config.RefreshSecret)
}

func (i *Issuer) sign(userID, email, secret string, expiry time.Duration) (string, error) {
	issuedAt := i.now().UTC()
	claims := &models.JWTClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.config.Issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) verify(tokenString, secret string) (*models.JWTClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*models.JWTClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
