package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterhub/event-gallery/internal/models"
	appErrors "github.com/chapterhub/event-gallery/pkg/errors"
)

func newTestAuthService() *AuthService {
	return NewAuthService(nil, nil, AuthConfig{
		Enabled:           true,
		AccessTokenSecret: "secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "event-gallery",
	})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newTestAuthService()

	issued, err := svc.IssueToken(models.IssueTokenRequest{Name: "ops", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.NotEmpty(t, issued.AccessToken)
	assert.Equal(t, models.RoleAdmin, issued.Role)

	claims, err := svc.ValidateToken(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Name)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "event-gallery", claims.Issuer)
}

func TestAuthServiceIssueRejectsUnknownRole(t *testing.T) {
	svc := newTestAuthService()

	_, err := svc.IssueToken(models.IssueTokenRequest{Name: "ops", Role: "root"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceValidateRejectsExpiredToken(t *testing.T) {
	svc := newTestAuthService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	issued, err := svc.IssueToken(models.IssueTokenRequest{Name: "ops", Role: models.RoleAdmin})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(issued.AccessToken)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceValidateRejectsForeignSignature(t *testing.T) {
	svc := newTestAuthService()
	other := NewAuthService(nil, nil, AuthConfig{AccessTokenSecret: "other", Issuer: "event-gallery"})
	issued, err := other.IssueToken(models.IssueTokenRequest{Name: "ops", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(issued.AccessToken)
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceValidateRejectsNoneAlgorithm(t *testing.T) {
	svc := newTestAuthService()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &models.JWTClaims{Role: models.RoleAdmin})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(raw)
	require.Error(t, err)
}
