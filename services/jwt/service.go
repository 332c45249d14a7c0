package jwt

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/otpgate/config"
	"github.com/tech-arch1tect/otpgate/internal/clock"
	"github.com/tech-arch1tect/otpgate/services/logging"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken     = errors.New("invalid JWT token")
	ErrExpiredToken     = errors.New("JWT token has expired")
	ErrMalformedToken   = errors.New("malformed JWT token")
	ErrInvalidSignature = errors.New("invalid JWT token signature")
	ErrMissingSecret    = errors.New("JWT secret key is not configured")
)

const TokenTypeVerification = "otp_verification"

// VerificationClaims prove that a code sent to Destination was verified.
type VerificationClaims struct {
	Method      string `json:"method"`
	Destination string `json:"destination"`
	TokenType   string `json:"token_type"`
	JTI         string `json:"jti"`
	jwt.RegisteredClaims
}

type Service struct {
	config *config.Config
	clock  clock.Clock
	logger *logging.Service
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return NewServiceWithClock(cfg, clock.New(), logger)
}

func NewServiceWithClock(cfg *config.Config, clk clock.Clock, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		clock:  clk,
		logger: logger,
	}
}

func (s *Service) GetReceiptExpirySeconds() int {
	return int(s.config.JWT.ReceiptExpiry.Seconds())
}

// GenerateVerificationReceipt signs a short lived HS256 token for a completed verification.
func (s *Service) GenerateVerificationReceipt(method, destination string) (string, error) {
	if s.config.JWT.SecretKey == "" {
		return "", ErrMissingSecret
	}

	now := s.clock.Now()
	jti := uuid.New().String()
	claims := VerificationClaims{
		Method:      method,
		Destination: destination,
		TokenType:   TokenTypeVerification,
		JTI:         jti,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.JWT.Issuer,
			Subject:   destination,
			Audience:  []string{s.config.JWT.Issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWT.ReceiptExpiry)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWT.SecretKey))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign verification receipt", zap.Error(err))
		}
		return "", fmt.Errorf("failed to generate verification receipt: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("verification receipt issued",
			zap.String("jti", jti),
			zap.String("method", method))
	}

	return tokenString, nil
}

func (s *Service) ValidateToken(tokenString string) (*VerificationClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VerificationClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == "none" {
			return nil, errors.New("'none' algorithm is not allowed")
		}

		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected algorithm: expected HS256, got %s", token.Method.Alg())
		}

		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}

		return []byte(s.config.JWT.SecretKey), nil
	},
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithIssuer(s.config.JWT.Issuer),
		jwt.WithAudience(s.config.JWT.Issuer),
	)

	if err != nil {
		if s.logger != nil {
			s.logger.Warn("verification receipt validation failed", zap.Error(err))
		}

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*VerificationClaims)
	if !ok || !token.Valid || claims.TokenType != TokenTypeVerification {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
