package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized, "invalid credentials"},
		{domain.ErrUnauthenticated, http.StatusUnauthorized, "authentication required"},
		{domain.ErrUserExists, http.StatusConflict, "user already exists"},
		{domain.ErrTokenConsumed, http.StatusBadRequest, "token already used"},
		{domain.ErrInvalidToken, http.StatusBadRequest, "invalid token"},
		{domain.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{fmt.Errorf("%w: username is required", domain.ErrInvalidInput), http.StatusBadRequest, "invalid input: username is required"},
		{fmt.Errorf("login: %w", domain.ErrStoreUnavailable), http.StatusServiceUnavailable, "service temporarily unavailable"},
		{echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), http.StatusTooManyRequests, "rate limit exceeded"},
		{errors.New("secret internal detail"), http.StatusInternalServerError, "internal server error"},
	}

	handler := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range cases {
		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

		handler(tc.err, c)

		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if resp.Error != tc.msg {
			t.Fatalf("%v: expected %q, got %q", tc.err, tc.msg, resp.Error)
		}
		if tc.code == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") != "1" {
			t.Fatalf("expected Retry-After header")
		}
	}
}
