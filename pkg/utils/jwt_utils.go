package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "warehouse-inventory-backend"

// DefaultRefreshTTL is the session lifetime when none is configured.
const DefaultRefreshTTL = 7 * 24 * time.Hour

// Token types carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims defines the JWT claims structure. The session id travels as jti.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access and refresh tokens.
type TokenManager struct {
	secret     []byte
	ttl        time.Duration
	refreshTTL time.Duration
}

// NewTokenManager creates a TokenManager. The secret should come from config.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl, refreshTTL: DefaultRefreshTTL}
}

// WithRefreshTTL sets the refresh token lifetime.
func (m *TokenManager) WithRefreshTTL(ttl time.Duration) *TokenManager {
	if ttl > 0 {
		m.refreshTTL = ttl
	}
	return m
}

// TTL is the lifetime of issued access tokens.
func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// RefreshTTL is the lifetime of issued refresh tokens.
func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

// GenerateAccessToken creates a token bound to sessionID that expires at expiresAt.
func (m *TokenManager) GenerateAccessToken(sessionID, userID, role string, issuedAt, expiresAt time.Time) (string, error) {
	return m.sign(&Claims{UserID: userID, Role: role, TokenType: TokenTypeAccess}, sessionID, userID, issuedAt, expiresAt)
}

// GenerateRefreshToken creates a refresh token for sessionID. It carries no role.
func (m *TokenManager) GenerateRefreshToken(sessionID, userID string, issuedAt, expiresAt time.Time) (string, error) {
	return m.sign(&Claims{UserID: userID, TokenType: TokenTypeRefresh}, sessionID, userID, issuedAt, expiresAt)
}

func (m *TokenManager) sign(claims *Claims, sessionID, userID string, issuedAt, expiresAt time.Time) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        sessionID,
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		Issuer:    tokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.TokenType, err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates an access token string.
// It returns the claims if the token is valid, otherwise an error.
func (m *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenTypeAccess)
}

// ValidateRefreshToken parses and validates a refresh token string.
func (m *TokenManager) ValidateRefreshToken(tokenString string) (*Claims, error) {
	return m.parse(tokenString, TokenTypeRefresh)
}

func (m *TokenManager) parse(tokenString, tokenType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.TokenType != tokenType {
		return nil, fmt.Errorf("expected a %s token, got %q", tokenType, claims.TokenType)
	}
	if claims.ID == "" {
		return nil, errors.New("token carries no session id")
	}
	return claims, nil
}
