package auth

import (
	"testing"

	"fieldtrack/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestJWTService(t *testing.T) *jwtService {
	t.Helper()

	cfg := &config.Config{}
	cfg.SecretKey.Access = "test-access-secret"
	cfg.SecretKey.Refresh = "test-refresh-secret"

	svc, err := NewJWTService(cfg)
	require.NoError(t, err)

	return svc.(*jwtService)
}

func TestNewJWTService_RequiresSecrets(t *testing.T) {
	cfg := &config.Config{}
	cfg.SecretKey.Access = "only-access"

	_, err := NewJWTService(cfg)

	assert.Error(t, err)
}

func TestJWTService_GenerateAndValidateAccessToken(t *testing.T) {
	svc := createTestJWTService(t)
	subjectID := uuid.New()

	accessToken, refreshToken, err := svc.GenerateTokens(subjectID, []string{"tracker"})
	require.NoError(t, err)
	require.NotEmpty(t, accessToken)
	require.NotEmpty(t, refreshToken)

	claims, err := svc.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, subjectID, claims.SubjectID)
	assert.Equal(t, []string{"tracker"}, claims.Roles)
	assert.Equal(t, "access", claims.Type)
}

func TestJWTService_ValidateToken_RejectsRefreshTokenAsAccess(t *testing.T) {
	svc := createTestJWTService(t)

	_, refreshToken, err := svc.GenerateTokens(uuid.New(), []string{"tracker"})
	require.NoError(t, err)

	// Refresh tokens are signed with a different secret.
	_, err = svc.ValidateToken(refreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateToken_RejectsGarbage(t *testing.T) {
	svc := createTestJWTService(t)

	_, err := svc.ValidateToken("not.a.token")

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_ValidateToken_RejectsForeignSignature(t *testing.T) {
	svc := createTestJWTService(t)

	otherCfg := &config.Config{}
	otherCfg.SecretKey.Access = "different-access-secret"
	otherCfg.SecretKey.Refresh = "different-refresh-secret"
	other, err := NewJWTService(otherCfg)
	require.NoError(t, err)

	accessToken, _, err := other.GenerateTokens(uuid.New(), []string{"admin"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(accessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
