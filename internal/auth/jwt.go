package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	claimSubject = "sub"
	claimRole    = "role"

	// RoleAdmin may inspect the catalog and toggle modules.
	RoleAdmin = "admin"
	// RoleViewer may only read catalog information.
	RoleViewer = "viewer"
)

// JWTMiddleware returns a JWT auth middleware configured for HS256 tokens.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		TokenLookup:   "header:Authorization:Bearer ,query:token",
		Skipper:       skipper,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
	})
}

// Principal is the caller identified by a validated token.
type Principal struct {
	Subject string
	Role    string
}

// PrincipalFromContext extracts the caller from JWT claims.
func PrincipalFromContext(c echo.Context) (Principal, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok || token == nil || !token.Valid {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	subject := claimString(claims, claimSubject)
	if subject == "" {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "subject missing")
	}
	role := claimString(claims, claimRole)
	if role == "" {
		role = RoleViewer
	}
	return Principal{Subject: subject, Role: role}, nil
}

// RequireRole rejects requests whose token does not carry role. Requests
// without a verified token are refused, so routes behind it stay closed
// when JWT auth is disabled.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Get("user") == nil {
				return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("%s role required; jwt auth is not configured", role))
			}
			p, err := PrincipalFromContext(c)
			if err != nil {
				return err
			}
			if p.Role != role {
				return echo.NewHTTPError(http.StatusForbidden, fmt.Sprintf("%s role required", role))
			}
			return next(c)
		}
	}
}

// GenerateToken creates a signed JWT for an operator of the admin API.
func GenerateToken(subject, role, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, fmt.Errorf("subject is required")
	}
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	if expiresIn <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt expires in must be positive")
	}
	switch role {
	case "":
		role = RoleViewer
	case RoleAdmin, RoleViewer:
	default:
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}

	now := time.Now().UTC()
	expiresAt := now.Add(expiresIn)
	claims := jwt.MapClaims{
		claimSubject: subject,
		claimRole:    role,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}
