package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"accountmarket/internal/infrastructure/firebase"
)

// Context keys set by Authenticate.
const (
	ContextUserID = "uid"
	ContextRole   = "role"
)

// TokenVerifier turns a bearer token into the caller's identity.
// firebase.FirebaseAuthClient implements it.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*firebase.Identity, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		identity, err := m.verifier.VerifyToken(c.Request().Context(), parts[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		setIdentity(c, identity)
		return next(c)
	}
}

// AuthenticateQuery accepts the token from the "token" query parameter.
// Browsers cannot set headers on a websocket handshake.
func (m *AuthMiddleware) AuthenticateQuery(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := c.QueryParam("token")
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Token query parameter is required")
		}

		identity, err := m.verifier.VerifyToken(c.Request().Context(), token)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		setIdentity(c, identity)
		return next(c)
	}
}

func setIdentity(c echo.Context, identity *firebase.Identity) {
	c.Set(ContextUserID, identity.UID)
	role := identity.Role
	if role == "" {
		role = "user"
	}
	c.Set(ContextRole, role)
}
