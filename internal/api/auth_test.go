package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestIdentityRequiresToken(t *testing.T) {
	srv := newTestServerWithSecret(t, testSecret)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	status, body := call(t, ts, "/api/Polling/create", map[string]any{"user": "alice", "name": "p"})
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	if body["error"] != errMissingToken.Error() {
		t.Errorf("error = %v, want %q", body["error"], errMissingToken.Error())
	}
}

func TestIdentityRejectsBadTokens(t *testing.T) {
	srv := newTestServerWithSecret(t, testSecret)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, "other-secret", "alice", time.Hour)},
		{"expired", signToken(t, testSecret, "alice", -time.Hour)},
		{"no subject", signToken(t, testSecret, "", time.Hour)},
		{"garbage", "not.a.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := callWithToken(t, ts, "/api/Polling/create", tt.token, map[string]any{"user": "alice", "name": "p"})
			if status != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", status)
			}
		})
	}
}

func TestIdentityMustMatchActingUser(t *testing.T) {
	srv := newTestServerWithSecret(t, testSecret)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	token := signToken(t, testSecret, "alice", time.Hour)

	status, body := callWithToken(t, ts, "/api/Polling/create", token, map[string]any{"user": "bob", "name": "p"})
	if status != http.StatusForbidden {
		t.Errorf("impersonation status = %d, want 403", status)
	}
	if body["error"] != errIdentityMismatch.Error() {
		t.Errorf("error = %v, want %q", body["error"], errIdentityMismatch.Error())
	}

	status, body = callWithToken(t, ts, "/api/Polling/create", token, map[string]any{"user": "alice", "name": "p"})
	if status != http.StatusOK {
		t.Errorf("own action status = %d, want 200 (body %v)", status, body)
	}
}

func TestIdentityDisabledWithoutSecret(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	status, _ := call(t, ts, "/api/Polling/create", map[string]any{"user": "anyone", "name": "p"})
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}

func TestHealthzSkipsIdentity(t *testing.T) {
	srv := newTestServerWithSecret(t, testSecret)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
