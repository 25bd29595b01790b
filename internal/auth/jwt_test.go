package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newGuardedEcho() *echo.Echo {
	e := echo.New()
	e.Use(JWTMiddleware(testSecret, func(c echo.Context) bool {
		return c.Request().URL.Path == "/open"
	}))
	e.GET("/open", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/read", func(c echo.Context) error {
		p, err := PrincipalFromContext(c)
		if err != nil {
			return err
		}
		return c.String(http.StatusOK, p.Subject+":"+p.Role)
	})
	e.PUT("/write", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole(RoleAdmin))
	return e
}

func serve(e *echo.Echo, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateToken(t *testing.T) {
	signed, expiresAt, err := GenerateToken("ops", RoleAdmin, testSecret, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "ops", claims[claimSubject])
	assert.Equal(t, RoleAdmin, claims[claimRole])
}

func TestGenerateTokenValidation(t *testing.T) {
	_, _, err := GenerateToken("", RoleAdmin, testSecret, time.Hour)
	assert.Error(t, err)
	_, _, err = GenerateToken("ops", RoleAdmin, "", time.Hour)
	assert.Error(t, err)
	_, _, err = GenerateToken("ops", RoleAdmin, testSecret, 0)
	assert.Error(t, err)
	_, _, err = GenerateToken("ops", "root", testSecret, time.Hour)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	e := newGuardedEcho()
	viewer, _, err := GenerateToken("alice", "", testSecret, time.Hour)
	require.NoError(t, err)
	admin, _, err := GenerateToken("ops", RoleAdmin, testSecret, time.Hour)
	require.NoError(t, err)
	forged, _, err := GenerateToken("mallory", RoleAdmin, "other-secret", time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/open", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/read", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/read", forged).Code)

	rec := serve(e, http.MethodGet, "/read", viewer)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice:viewer", rec.Body.String())

	rec = serve(e, http.MethodGet, "/read?token="+admin, "")
	assert.Equal(t, "ops:admin", rec.Body.String())

	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPut, "/write", viewer).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodPut, "/write", admin).Code)
}

func TestRequireRoleWithoutJWTRefuses(t *testing.T) {
	e := echo.New()
	called := false
	e.PUT("/write", func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusNoContent)
	}, RequireRole(RoleAdmin))

	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPut, "/write", "").Code)
	assert.False(t, called)
}
