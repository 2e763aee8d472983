package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgauth "github.com/angelmondragon/pizzeria-backend/pkg/auth"
	"github.com/angelmondragon/pizzeria-backend/pkg/config"
	"github.com/angelmondragon/pizzeria-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "pizzeria-auth", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(testJWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: "user-1",
		Name:   "Ana",
		Phone:  "11999990000",
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestOptionalAuthLetsGuestsThrough(t *testing.T) {
	var sawClaims bool
	handler := OptionalAuth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawClaims = ClaimsFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if sawClaims {
		t.Fatal("guest request should carry no claims")
	}
}

func TestOptionalAuthRejectsInvalidToken(t *testing.T) {
	handler := OptionalAuth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"Bearer invalid", "Token abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%q: expected 401 got %d", header, resp.Code)
		}
	}
}

func TestOptionalAuthSeedsClaims(t *testing.T) {
	var user, role string
	handler := OptionalAuth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = UserIDFromContext(r.Context())
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if user != "user-1" || role != string(enums.UserRoleCustomer) {
		t.Fatalf("unexpected claims user=%q role=%q", user, role)
	}
}

func TestRequireStaff(t *testing.T) {
	chain := func() http.Handler {
		return OptionalAuth(testJWT, nil)(RequireStaff(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))
	}

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"guest", "", http.StatusUnauthorized},
		{"customer", mintTestToken(t, enums.UserRoleCustomer), http.StatusForbidden},
		{"staff", mintTestToken(t, enums.UserRoleStaff), http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/orders", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		resp := httptest.NewRecorder()
		chain().ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.want, resp.Code)
		}
	}
}
