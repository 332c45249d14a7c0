package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/otpgate/internal/clock"
	"github.com/tech-arch1tect/otpgate/testutils"
)

var testNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testNow)
	return NewServiceWithClock(testutils.GetTestConfig(), clk, nil), clk
}

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims VerificationClaims) string {
	t.Helper()
	tokenString, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return tokenString
}

func validClaims(cfgIssuer string) VerificationClaims {
	return VerificationClaims{
		Method:      "email",
		Destination: "ada@example.com",
		TokenType:   TokenTypeVerification,
		JTI:         "test-jti",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "test-jti",
			Issuer:    cfgIssuer,
			Audience:  []string{cfgIssuer},
			Subject:   "ada@example.com",
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(testNow),
		},
	}
}

func TestNewService(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)

	assert.Equal(t, cfg, service.config)
	assert.NotNil(t, service.clock)
	assert.Equal(t, 300, service.GetReceiptExpirySeconds())
}

func TestService_GenerateVerificationReceipt(t *testing.T) {
	service, _ := newTestService(t)

	tokenString, err := service.GenerateVerificationReceipt("sms", "+15551234567")
	require.NoError(t, err)

	claims, err := service.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "sms", claims.Method)
	assert.Equal(t, "+15551234567", claims.Destination)
	assert.Equal(t, "+15551234567", claims.Subject)
	assert.Equal(t, TokenTypeVerification, claims.TokenType)
	assert.Equal(t, claims.ID, claims.JTI)
	assert.NotEmpty(t, claims.JTI)
	assert.Equal(t, testNow.Add(5*time.Minute).Unix(), claims.ExpiresAt.Unix())

	t.Run("each receipt has its own id", func(t *testing.T) {
		other, err := service.GenerateVerificationReceipt("sms", "+15551234567")
		require.NoError(t, err)
		otherClaims, err := service.ValidateToken(other)
		require.NoError(t, err)
		assert.NotEqual(t, claims.JTI, otherClaims.JTI)
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.JWT.SecretKey = ""

		_, err := NewService(cfg, nil).GenerateVerificationReceipt("email", "ada@example.com")

		assert.ErrorIs(t, err, ErrMissingSecret)
	})
}

func TestService_ValidateToken(t *testing.T) {
	cfg := testutils.GetTestConfig()

	t.Run("malformed token", func(t *testing.T) {
		service, _ := newTestService(t)

		claims, err := service.ValidateToken("invalid.token.string")

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrMalformedToken, err)
	})

	t.Run("expired receipt", func(t *testing.T) {
		service, clk := newTestService(t)
		tokenString, err := service.GenerateVerificationReceipt("email", "ada@example.com")
		require.NoError(t, err)

		clk.Advance(6 * time.Minute)
		claims, err := service.ValidateToken(tokenString)

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrExpiredToken, err)
	})

	t.Run("invalid signature", func(t *testing.T) {
		service, _ := newTestService(t)
		tokenString := signClaims(t, jwt.SigningMethodHS256, []byte("z8y7x6w5v4u3t2s1r0q9p8o7n6m5l4k3"), validClaims(cfg.JWT.Issuer))

		claims, err := service.ValidateToken(tokenString)

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrInvalidSignature, err)
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		service, _ := newTestService(t)
		tokenString := signClaims(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims(cfg.JWT.Issuer))

		claims, err := service.ValidateToken(tokenString)

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrInvalidToken, err)
	})

	t.Run("other HMAC algorithm rejected", func(t *testing.T) {
		service, _ := newTestService(t)
		tokenString := signClaims(t, jwt.SigningMethodHS512, []byte(cfg.JWT.SecretKey), validClaims(cfg.JWT.Issuer))

		claims, err := service.ValidateToken(tokenString)

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrInvalidToken, err)
	})

	t.Run("foreign issuer rejected", func(t *testing.T) {
		service, _ := newTestService(t)
		tokenString := signClaims(t, jwt.SigningMethodHS256, []byte(cfg.JWT.SecretKey), validClaims("someone-else"))

		claims, err := service.ValidateToken(tokenString)

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrInvalidToken, err)
	})

	t.Run("wrong token type rejected", func(t *testing.T) {
		service, _ := newTestService(t)
		other := validClaims(cfg.JWT.Issuer)
		other.TokenType = "access"
		tokenString := signClaims(t, jwt.SigningMethodHS256, []byte(cfg.JWT.SecretKey), other)

		claims, err := service.ValidateToken(tokenString)

		assert.Nil(t, claims)
		testutils.AssertErrorType(t, ErrInvalidToken, err)
	})
}
