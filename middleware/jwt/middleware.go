package jwt

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/otpgate/services/jwt"
)

const ClaimsKey = "_receipt_claims"

// RequireReceipt rejects requests without a valid bearer verification
// receipt and stores its claims on the context.
func RequireReceipt(jwtService *jwt.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Verification receipt required")
			}

			claims, err := jwtService.ValidateToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrExpiredToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "Verification receipt has expired")
				case errors.Is(err, jwt.ErrMalformedToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "Malformed verification receipt")
				case errors.Is(err, jwt.ErrInvalidSignature):
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid verification receipt signature")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid verification receipt")
				}
			}

			c.Set(ClaimsKey, claims)

			return next(c)
		}
	}
}

func GetClaims(c echo.Context) *jwt.VerificationClaims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.VerificationClaims); ok {
		return claims
	}
	return nil
}
