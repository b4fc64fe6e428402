package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aya-berrouan/glowora/internal/domain"
	"github.com/aya-berrouan/glowora/internal/handler"
	"github.com/aya-berrouan/glowora/internal/middleware"
)

type fakeUserStore struct {
	sessions map[string]*domain.User
}

func (f *fakeUserStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (f *fakeUserStore) GetUserBySessionToken(ctx context.Context, token string) (*domain.User, error) {
	if u, ok := f.sessions[token]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func authTestSetup() (*middleware.Auth, *fakeUserStore) {
	store := &fakeUserStore{sessions: map[string]*domain.User{
		"tok_customer": {ID: 7, Role: domain.RoleCustomer},
		"tok_admin":    {ID: 1, Role: domain.RoleAdmin},
	}}
	return middleware.NewAuth(store, zerolog.Nop()), store
}

func doRequest(t *testing.T, mw []echo.MiddlewareFunc, token string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()

	next := func(c echo.Context) error {
		user := handler.CurrentUser(c)
		require.NotNil(t, user)
		return c.NoContent(http.StatusOK)
	}
	h := next
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h(c))
	return rec
}

func TestRequireUser(t *testing.T) {
	auth, _ := authTestSetup()
	mw := []echo.MiddlewareFunc{auth.RequireUser()}

	assert.Equal(t, http.StatusOK, doRequest(t, mw, "tok_customer").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, mw, "tok_unknown").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, mw, "").Code)
}

func TestRequireAdmin(t *testing.T) {
	auth, _ := authTestSetup()
	mw := []echo.MiddlewareFunc{auth.RequireUser(), auth.RequireAdmin()}

	assert.Equal(t, http.StatusOK, doRequest(t, mw, "tok_admin").Code)
	assert.Equal(t, http.StatusForbidden, doRequest(t, mw, "tok_customer").Code)
}
