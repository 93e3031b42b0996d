package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"warehouse_inventory_backend/internal/models"
	"warehouse_inventory_backend/internal/repositories"
	"warehouse_inventory_backend/pkg/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is the single answer to every failed login, so callers
// cannot tell unknown emails from wrong passwords.
var ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrAuthentication)

// --- Data Transfer Objects (DTOs) ---

// LoginRequest DTO
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest DTO. The token may also arrive as a cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse DTO
type AuthResponse struct {
	User             *models.User `json:"user"`
	AccessToken      string       `json:"access_token"`
	ExpiresAt        time.Time    `json:"expires_at"`
	RefreshToken     string       `json:"refresh_token"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
}

// Principal is the result of authenticating an access token.
type Principal struct {
	User    *models.User
	Session *models.Session
}

// AuthService issues and checks login sessions.
type AuthService struct {
	users    repositories.UserRepository
	sessions repositories.SessionRepository
	tokens   *utils.TokenManager
	authz    *Authorizer
	auditor  *auditor
	now      func() time.Time
}

// Login checks the password and opens a session carried by a signed token.
// Every attempt, successful or not, is audited.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, ipAddress string) (*AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	fail := func(userID, reason string) error {
		s.auditor.record(ctx, s.auditor.entry(Actor{UserID: userID, IPAddress: ipAddress}, models.AuditLogin, models.EntityUser, userID,
			map[string]interface{}{"outcome": "failure", "email": email, "reason": reason}))
		return ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fail("", "unknown email")
		}
		return nil, fmt.Errorf("login attempt failed: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fail(user.ID, "wrong password")
	}
	if !user.IsActive {
		s.auditor.record(ctx, s.auditor.entry(Actor{UserID: user.ID, IPAddress: ipAddress}, models.AuditLogin, models.EntityUser, user.ID,
			map[string]interface{}{"outcome": "failure", "email": email, "reason": "account deactivated"}))
		return nil, fmt.Errorf("%w: account is deactivated", ErrAuthentication)
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		IPAddress: ipAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokens.RefreshTTL()),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	resp, err := s.issue(user, session, now)
	if err != nil {
		return nil, err
	}
	resp.RefreshToken, err = s.tokens.GenerateRefreshToken(session.ID, user.ID, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}

	s.auditor.record(ctx, s.auditor.entry(Actor{UserID: user.ID, SessionID: session.ID, IPAddress: ipAddress},
		models.AuditLogin, models.EntitySession, session.ID, map[string]interface{}{"outcome": "success"}))
	return resp, nil
}

// issue signs an access token for the session. It never outlives the session.
func (s *AuthService) issue(user *models.User, session *models.Session, now time.Time) (*AuthResponse, error) {
	expiresAt := now.Add(s.tokens.TTL())
	if expiresAt.After(session.ExpiresAt) {
		expiresAt = session.ExpiresAt
	}
	token, err := s.tokens.GenerateAccessToken(session.ID, user.ID, string(user.Role), now, expiresAt)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, AccessToken: token, ExpiresAt: expiresAt, RefreshExpiresAt: session.ExpiresAt}, nil
}

// expired reports whether claims are past their expiry on the service clock.
func (s *AuthService) expired(claims *utils.Claims) bool {
	return claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time)
}

// Refresh exchanges a refresh token for a new access token on the same session.
// The session must still be live and its user active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ipAddress string) (*AuthResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if s.expired(claims) {
		return nil, fmt.Errorf("%w: refresh token expired", ErrAuthentication)
	}
	session, err := s.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, notFoundOr(err, ErrAuthentication, "unknown session")
	}
	now := s.now()
	if !session.Active(now) || session.UserID != claims.UserID {
		return nil, fmt.Errorf("%w: session expired or revoked", ErrAuthentication)
	}
	user, err := s.authz.activeUser(ctx, Actor{UserID: session.UserID})
	if err != nil {
		return nil, err
	}
	resp, err := s.issue(user, session, now)
	if err != nil {
		return nil, err
	}
	resp.RefreshToken = refreshToken
	utils.LogDebug("Access token refreshed", map[string]interface{}{"session_id": session.ID, "ip": ipAddress})
	return resp, nil
}

// Authenticate resolves a token to a live session and an active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	if s.expired(claims) {
		return nil, fmt.Errorf("%w: access token expired", ErrAuthentication)
	}
	session, err := s.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, notFoundOr(err, ErrAuthentication, "unknown session")
	}
	if !session.Active(s.now()) {
		return nil, fmt.Errorf("%w: session expired or revoked", ErrAuthentication)
	}
	user, err := s.authz.activeUser(ctx, Actor{UserID: session.UserID})
	if err != nil {
		return nil, err
	}
	return &Principal{User: user, Session: session}, nil
}

// Logout revokes the caller's session.
func (s *AuthService) Logout(ctx context.Context, actor Actor) error {
	if actor.SessionID == "" {
		return fmt.Errorf("%w: no session", ErrAuthentication)
	}
	if err := s.sessions.RevokeSession(ctx, actor.SessionID, s.now()); err != nil {
		return notFoundOr(err, ErrAuthentication, "session already closed")
	}
	s.auditor.record(ctx, s.auditor.entry(actor, models.AuditLogout, models.EntitySession, actor.SessionID, nil))
	return nil
}

// CurrentUser returns the caller's user record.
func (s *AuthService) CurrentUser(ctx context.Context, actor Actor) (*models.User, error) {
	return s.authz.Authenticated(ctx, actor)
}
