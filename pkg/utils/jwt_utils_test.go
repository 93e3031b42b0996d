package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	now := time.Now()

	token, err := m.GenerateAccessToken("session-1", "user-1", "VIEWER", now, now.Add(m.TTL()))
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.ID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "VIEWER", claims.Role)
}

func TestTokenRejections(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	other := NewTokenManager("fedcba9876543210fedcba9876543210", time.Hour)
	now := time.Now()

	expired, err := m.GenerateAccessToken("s", "u", "VIEWER", now.Add(-2*time.Hour), now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.Error(t, err)

	foreign, err := other.GenerateAccessToken("s", "u", "VIEWER", now, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = m.ValidateToken(foreign)
	assert.Error(t, err)

	noSession, err := m.GenerateAccessToken("", "u", "VIEWER", now, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = m.ValidateToken(noSession)
	assert.Error(t, err)

	_, err = m.ValidateToken("garbage")
	assert.Error(t, err)
}

func TestRefreshTokensAreNotAccessTokens(t *testing.T) {
	m := NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	assert.Equal(t, DefaultRefreshTTL, m.RefreshTTL())
	m.WithRefreshTTL(48 * time.Hour)
	assert.Equal(t, 48*time.Hour, m.RefreshTTL())
	now := time.Now()

	refresh, err := m.GenerateRefreshToken("session-1", "user-1", now, now.Add(m.RefreshTTL()))
	require.NoError(t, err)
	claims, err := m.ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.ID)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)

	_, err = m.ValidateToken(refresh)
	assert.Error(t, err)

	access, err := m.GenerateAccessToken("session-1", "user-1", "VIEWER", now, now.Add(time.Hour))
	require.NoError(t, err)
	_, err = m.ValidateRefreshToken(access)
	assert.Error(t, err)
}

func TestStrToOptionalTime(t *testing.T) {
	got, err := StrToOptionalTime("2026-03-10")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), *got)

	got, err = StrToOptionalTime("")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = StrToOptionalTime("10/03/2026")
	assert.Error(t, err)
}
