package internal

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johndosdos/hybridchat/internal/auth"
)

const testSecret = "middleware-secret"

func helper(t *testing.T, id auth.Identity, jwtExp time.Duration, isHeaderEmpty bool) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/users/status", nil)
	rec := httptest.NewRecorder()

	if isHeaderEmpty {
		return req, rec
	}

	jwtStr, err := auth.MakeJWT(id, "", testSecret, jwtExp)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+jwtStr)

	return req, rec
}

func TestAuthenticate(t *testing.T) {
	user := auth.Identity{UserID: 1, Username: "dummy", Email: "dummy@test.com"}

	tests := []struct {
		Name              string
		jwtExp            time.Duration
		isHeaderEmpty     bool
		wantHandlerCalled bool
		wantCode          int
	}{
		{"valid_JWT", 5 * time.Minute, false, true, http.StatusOK},
		{"expired_JWT", -1 * time.Second, false, false, http.StatusUnauthorized},
		{"empty_header", 0, true, false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			req, rec := helper(t, user, tt.jwtExp, tt.isHeaderEmpty)

			isHandlerCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				isHandlerCalled = true
				claims, err := auth.GetClaimsFromContext(r.Context())
				require.NoError(t, err)
				assert.Equal(t, "dummy", claims.Username)
				w.WriteHeader(http.StatusOK)
			})

			Authenticate(testSecret)(nextHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantHandlerCalled, isHandlerCalled)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	t.Run("wrong_scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic abc")
		rec := httptest.NewRecorder()

		Authenticate(testSecret)(http.NotFoundHandler()).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"No token provided"}`, rec.Body.String())
	})
}

func TestRequireAdmin(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := Authenticate(testSecret)(RequireAdmin(ok))

	t.Run("admin", func(t *testing.T) {
		req, rec := helper(t, auth.Identity{UserID: 1, Username: "admin", IsAdmin: true}, time.Minute, false)
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("regular_user", func(t *testing.T) {
		req, rec := helper(t, auth.Identity{UserID: 2, Username: "bob"}, time.Minute, false)
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"localhost:3000", "*.vercel.app"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		origin     string
		wantHeader string
	}{
		{"exact", "http://localhost:3000", "http://localhost:3000"},
		{"wildcard", "https://hybrid-chat.vercel.app", "https://hybrid-chat.vercel.app"},
		{"rejected", "https://evil.example.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/messages/general", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantHeader, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/login", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
