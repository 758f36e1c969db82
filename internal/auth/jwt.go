package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prospera-platform/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenRevoked          = errors.New("auth: token revoked")
	ErrNoRevoker             = errors.New("auth: revocation store not configured")
	ErrRevocationUnavailable = errors.New("auth: revocation lookup failed")
	errTypeMismatch          = errors.New("token_type mismatch")
	errSubjectAbsent         = errors.New("sub missing")
)

type Manager struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration

	revoker Revoker
}

// NewManager builds a token manager. revoker may be nil, in which case
// logout and refresh rotation are unavailable.
func NewManager(cfg config.AuthConfig, revoker Revoker) (*Manager, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}

	return &Manager{
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.JWTIssuer,
		audience:   cfg.JWTAudience,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		revoker:    revoker,
	}, nil
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (m *Manager) IssuePair(now time.Time, userID, bankID, email string) (TokenPair, error) {
	if userID == "" {
		return TokenPair{}, errSubjectAbsent
	}
	access, err := m.issue(now, TokenTypeAccess, userID, bankID, email, m.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.issue(now, TokenTypeRefresh, userID, bankID, "", m.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(m.accessTTL).UTC(),
	}, nil
}

// Verify checks signature, time claims, issuer/audience and token type.
// It does not consult the revocation store; see VerifyActive.
func (m *Manager) Verify(tokenString string, expected TokenType, now time.Time) (Claims, error) {
	var claims Claims

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithLeeway(30 * time.Second),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return Claims{}, err
	}

	if claims.TokenType != expected {
		return Claims{}, errTypeMismatch
	}
	if claims.Subject == "" {
		return Claims{}, errSubjectAbsent
	}
	return claims, nil
}

// VerifyActive is Verify plus a revocation check. Revocation store errors are returned as-is.
func (m *Manager) VerifyActive(ctx context.Context, tokenString string, expected TokenType, now time.Time) (Claims, error) {
	claims, err := m.Verify(tokenString, expected, now)
	if err != nil {
		return Claims{}, err
	}
	if m.revoker == nil || claims.ID == "" {
		return claims, nil
	}
	revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if revoked {
		return Claims{}, ErrTokenRevoked
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the old refresh token.
func (m *Manager) Refresh(ctx context.Context, refreshToken string, now time.Time) (TokenPair, error) {
	if m.revoker == nil {
		return TokenPair{}, ErrNoRevoker
	}
	claims, err := m.VerifyActive(ctx, refreshToken, TokenTypeRefresh, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := m.Revoke(ctx, claims); err != nil {
		return TokenPair{}, err
	}
	return m.IssuePair(now, claims.Subject, claims.BankID, claims.Email)
}

// Revoke marks a verified token as no longer usable.
func (m *Manager) Revoke(ctx context.Context, claims Claims) error {
	if m.revoker == nil {
		return ErrNoRevoker
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return errors.New("auth: token has no jti or exp")
	}
	return m.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (m *Manager) issue(now time.Time, tokenType TokenType, userID, bankID, email string, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			Audience:  audienceOrNil(m.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		BankID:    bankID,
		Email:     email,
		TokenType: tokenType,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(m.secret)
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
