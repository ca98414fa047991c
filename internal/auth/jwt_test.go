package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func signClaims(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestGenerateAndValidateToken(t *testing.T) {
	userID := uuid.New()

	token, err := GenerateToken(userID, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestValidateToken(t *testing.T) {
	userID := uuid.New()
	valid, err := GenerateToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken(userID, testSecret, -time.Hour)
	require.NoError(t, err)

	base := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{CheckoutAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
	}
	wrongIssuer := base()
	wrongIssuer.Issuer = "someone-else"
	wrongAudience := base()
	wrongAudience.Audience = jwt.ClaimStrings{"admin"}
	noExpiry := base()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name      string
		token     string
		secret    string
		wantErrIs error
	}{
		{name: "expired token", token: expired, secret: testSecret, wantErrIs: jwt.ErrTokenExpired},
		{name: "wrong secret", token: valid, secret: "wrong-secret", wantErrIs: jwt.ErrTokenSignatureInvalid},
		{name: "malformed token", token: "not.a.valid.jwt", secret: testSecret, wantErrIs: jwt.ErrTokenMalformed},
		{name: "empty token", token: "", secret: testSecret, wantErrIs: jwt.ErrTokenMalformed},
		{name: "wrong issuer", token: signClaims(t, wrongIssuer), secret: testSecret, wantErrIs: jwt.ErrTokenInvalidIssuer},
		{name: "wrong audience", token: signClaims(t, wrongAudience), secret: testSecret, wantErrIs: jwt.ErrTokenInvalidAudience},
		{name: "no expiry", token: signClaims(t, noExpiry), secret: testSecret, wantErrIs: jwt.ErrTokenRequiredClaimMissing},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateToken(tc.token, tc.secret)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErrIs)
		})
	}
}

func TestValidateToken_RejectsNonHMAC(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   uuid.NewString(),
		Audience:  jwt.ClaimStrings{CheckoutAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateToken(signed, testSecret)
	require.Error(t, err)
}

func TestValidateToken_SubjectMustBeUUID(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "buyer-7",
		Audience:  jwt.ClaimStrings{CheckoutAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	_, err := ValidateToken(signClaims(t, claims), testSecret)
	require.Error(t, err)
}
