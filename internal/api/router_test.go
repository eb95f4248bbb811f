package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/swaggo/swag"

	"github.com/gary-backend/auth-service/internal/api/handler"
	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/ports"
	"github.com/gary-backend/auth-service/internal/core/service"
)

type routerStubService struct {
	statusCalls int
}

func (s *routerStubService) Login(context.Context, string, string) (*ports.LoginResult, error) {
	return nil, domain.ErrInvalidCredentials
}

func (s *routerStubService) Signup(_ context.Context, in ports.SignupInput) (*domain.User, error) {
	return &domain.User{Username: in.Username}, nil
}

func (s *routerStubService) ChangePassword(context.Context, *domain.AuthContext, string, string) error {
	return nil
}

func (s *routerStubService) RequestPasswordReset(context.Context, string) error { return nil }

func (s *routerStubService) ConfirmPasswordReset(context.Context, string, string) error {
	return domain.ErrTokenConsumed
}

func (s *routerStubService) Describe(auth *domain.AuthContext) domain.AuthDescription {
	if auth == nil {
		return domain.AuthDescription{}
	}
	return domain.AuthDescription{Authenticated: true, Name: auth.Username, TopLevelRole: domain.TopLevelRole(auth.Roles), InheritedRoles: []string{}}
}

func (s *routerStubService) SetUserStatus(context.Context, string, domain.UserStatus) error {
	s.statusCalls++
	return nil
}

type routerFixture struct {
	e      *echo.Echo
	tokens *service.TokenService
	svc    *routerStubService
}

func newRouterFixture(t *testing.T, limit RateLimit) *routerFixture {
	t.Helper()
	tokens, err := service.NewTokenService("secret")
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	hierarchy, err := domain.ParseRoleHierarchy("ROLE_ADMIN > ROLE_USER")
	if err != nil {
		t.Fatalf("hierarchy: %v", err)
	}
	svc := &routerStubService{}
	e := NewRouter(Dependencies{
		Auth:      svc,
		Tokens:    tokens,
		Hierarchy: hierarchy,
		Health:    map[string]handler.Pinger{},
		RateLimit: limit,
		Log:       zerolog.Nop(),
	})
	return &routerFixture{e: e, tokens: tokens, svc: svc}
}

func (f *routerFixture) bearer(t *testing.T, roles ...string) string {
	t.Helper()
	token, _, err := f.tokens.Issue(&domain.User{ID: "u-1", Username: "alice", Roles: roles}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + token
}

func (f *routerFixture) do(method, path, body, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authz != "" {
		req.Header.Set(echo.HeaderAuthorization, authz)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	f := newRouterFixture(t, RateLimit{})

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		authz  string
		want   int
	}{
		{"login bad credentials", http.MethodPost, "/auth/login", `{"username":"a","password":"b"}`, "", http.StatusUnauthorized},
		{"signup", http.MethodPost, "/auth/signup", `{"username":"a","password":"b"}`, "", http.StatusOK},
		{"change password anonymous", http.MethodPut, "/auth/password/change", `{"old_password":"a","new_password":"b"}`, "", http.StatusUnauthorized},
		{"change password", http.MethodPut, "/auth/password/change", `{"old_password":"a","new_password":"b"}`, f.bearer(t, "ROLE_USER"), http.StatusOK},
		{"reset request", http.MethodPost, "/auth/password/reset", `{"username":"a"}`, "", http.StatusOK},
		{"reset confirm consumed", http.MethodPut, "/auth/password/reset?token=x", `{"new_password":"b"}`, "", http.StatusBadRequest},
		{"info anonymous", http.MethodGet, "/auth/info", "", "", http.StatusOK},
		{"info garbage token", http.MethodGet, "/auth/info", "", "Bearer nope", http.StatusOK},
		{"admin anonymous", http.MethodPut, "/admin/users/bob/status", `{"status":"locked"}`, "", http.StatusUnauthorized},
		{"admin as user", http.MethodPut, "/admin/users/bob/status", `{"status":"locked"}`, f.bearer(t, "ROLE_USER"), http.StatusForbidden},
		{"admin", http.MethodPut, "/admin/users/bob/status", `{"status":"locked"}`, f.bearer(t, "ROLE_ADMIN"), http.StatusNoContent},
		{"health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"ready", http.MethodGet, "/health/ready", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", "", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := f.do(tc.method, tc.path, tc.body, tc.authz)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}
	if f.svc.statusCalls != 1 {
		t.Fatalf("expected exactly one admin call, got %d", f.svc.statusCalls)
	}
}

func TestRouter_InfoDescribesCaller(t *testing.T) {
	f := newRouterFixture(t, RateLimit{})

	anon := f.do(http.MethodGet, "/auth/info", "", "")
	if anon.Body.String() != "Unauthenticated" {
		t.Fatalf("unexpected anonymous body: %q", anon.Body.String())
	}

	rec := f.do(http.MethodGet, "/auth/info", "", f.bearer(t, "ROLE_ADMIN"))
	if !strings.Contains(rec.Body.String(), `"top_level_role":"ROLE_ADMIN"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_RateLimitsLogin(t *testing.T) {
	f := newRouterFixture(t, RateLimit{Rate: 0.001, Burst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, f.do(http.MethodPost, "/auth/login", `{"username":"a","password":"b"}`, "").Code)
	}
	if codes[0] != http.StatusUnauthorized || codes[1] != http.StatusUnauthorized || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}

	if rec := f.do(http.MethodPost, "/auth/signup", `{"username":"a","password":"b"}`, ""); rec.Code != http.StatusOK {
		t.Fatalf("signup should not be limited, got %d", rec.Code)
	}
}

var routeParam = regexp.MustCompile(`:(\w+)`)

func TestRouter_RoutesAreDocumented(t *testing.T) {
	f := newRouterFixture(t, RateLimit{})

	raw, err := swag.ReadDoc()
	if err != nil {
		t.Fatalf("read swagger doc: %v", err)
	}
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("swagger doc is not valid JSON: %v", err)
	}

	for _, r := range f.e.Routes() {
		switch r.Method {
		case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		default:
			continue
		}
		if r.Path == "/swagger/*" {
			continue
		}
		path := routeParam.ReplaceAllString(r.Path, "{$1}")
		if _, ok := doc.Paths[path][strings.ToLower(r.Method)]; !ok {
			t.Errorf("%s %s is not documented", r.Method, path)
		}
	}
}
