package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestEchoAuthMiddlewareSetsSubject(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignJWT("user-9", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	var fromCtx string
	handler := EchoAuthMiddleware(secret)(func(c echo.Context) error {
		sub, ok := SubjectFromContext(c.Request().Context())
		if !ok {
			t.Fatalf("subject missing from request context")
		}
		fromCtx = sub
		return c.NoContent(http.StatusOK)
	})
	if err := handler(ctx); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if fromCtx != "user-9" {
		t.Fatalf("subject: got %q want user-9", fromCtx)
	}
	if got := ctx.Get("user_id"); got != "user-9" {
		t.Fatalf("user_id: got %v", got)
	}
}

func TestEchoAuthMiddlewareRejectsBadToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := EchoAuthMiddleware([]byte("test-secret"))(func(c echo.Context) error {
		t.Fatalf("handler should not run")
		return nil
	})
	err := handler(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %#v", err)
	}
}

func TestEchoAuthMiddlewareAcceptsCookie(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := SignJWT("user-3", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "auth", Value: tok})
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := EchoAuthMiddleware(secret)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(ctx); err != nil {
		t.Fatalf("middleware: %v", err)
	}
	if got := ctx.Get("user_id"); got != "user-3" {
		t.Fatalf("user_id: got %v", got)
	}
}
