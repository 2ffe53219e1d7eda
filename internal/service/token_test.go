package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/la-portal-api/internal/models"
	appErrors "github.com/noah-isme/la-portal-api/pkg/errors"
)

func newTestTokens(t *testing.T, now time.Time) *TokenService {
	t.Helper()
	svc, err := NewTokenService(TokenConfig{Secret: "unit-test-secret", Expiry: 8 * time.Hour, Issuer: "la-portal"})
	require.NoError(t, err)
	svc.now = func() time.Time { return now }
	return svc
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	assert.Error(t, err)
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	svc := newTestTokens(t, now)

	token, expiresAt, err := svc.Issue(models.Principal{Kind: models.KindStaff, ID: "001234567", Role: models.RoleCourseLead, Name: "Casey"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(8*time.Hour), expiresAt)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCourseLead, claims.Role)
	assert.Equal(t, "001234567", claims.Subject)
	assert.Equal(t, models.KindStaff, claims.Kind)
}

func TestVerifyExpiredMatchesMalformedShape(t *testing.T) {
	issued := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	svc := newTestTokens(t, issued)
	token, _, err := svc.Issue(models.Principal{Kind: models.KindStaff, ID: "1", Role: models.RoleLearningAssistant})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(7*time.Hour + 59*time.Minute) }
	_, err = svc.Verify(token)
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(8*time.Hour + time.Minute) }
	_, expiredErr := svc.Verify(token)
	_, malformedErr := svc.Verify("not.a.token")

	require.Error(t, expiredErr)
	require.Error(t, malformedErr)
	expired := appErrors.FromError(expiredErr)
	malformed := appErrors.FromError(malformedErr)
	assert.Equal(t, malformed.Status, expired.Status)
	assert.Equal(t, malformed.Code, expired.Code)
	assert.Equal(t, malformed.Message, expired.Message)
	assert.Equal(t, "invalid token", expired.Message)
}

func TestVerifyRejectsForeignTokens(t *testing.T) {
	now := time.Now()
	svc := newTestTokens(t, now)

	claims := &models.Claims{Kind: models.KindStaff, Role: models.RoleSeniorLead, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    "la-portal",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}

	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(wrongSecret)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(unsigned)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)

	claims.Role = models.Role("ROOT")
	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)
	_, err = svc.Verify(badRole)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}

func TestVerifyRequiresExpiry(t *testing.T) {
	svc := newTestTokens(t, time.Now())
	claims := &models.Claims{Kind: models.KindStaff, Role: models.RoleSeniorLead, RegisteredClaims: jwt.RegisteredClaims{Subject: "1", Issuer: "la-portal"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	require.NoError(t, err)

	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, appErrors.ErrInvalidToken)
}
