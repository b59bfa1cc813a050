package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/casework-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager("test-secret", 30)

	token, expiresAt, err := tm.GenerateToken("user-1", domain.RoleManager, "ja")
	req.NoError(err)
	req.True(expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	req.NoError(err)
	req.Equal("user-1", claims.SubjectID)
	req.Equal(domain.RoleManager, claims.Role)
	req.Equal("ja", claims.Locale)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	req := require.New(t)
	tm := NewTokenManager("secret-a", 30)
	other := NewTokenManager("secret-b", 30)

	token, _, err := tm.GenerateToken("user-1", domain.RoleWorker, "vi")
	req.NoError(err)

	_, err = other.ParseToken(token)
	req.Error(err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	_, err := tm.ParseToken("not.a.token")
	require.Error(t, err)
}
