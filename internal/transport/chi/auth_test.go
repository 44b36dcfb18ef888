package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func authRequest(t *testing.T, keys []string, path, header string) *httptest.ResponseRecorder {
	t.Helper()
	handler := BearerAuthMiddleware(keys)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest("GET", path, http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestBearerAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys disables auth", nil, "/search", "", http.StatusOK},
		{"blank keys disable auth", []string{"", ""}, "/search", "", http.StatusOK},
		{"missing header", []string{"s3cr3t"}, "/search", "", http.StatusUnauthorized},
		{"basic scheme", []string{"s3cr3t"}, "/search", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"scheme only", []string{"s3cr3t"}, "/search", "Bearer", http.StatusUnauthorized},
		{"empty token", []string{"s3cr3t"}, "/admin/sync", "Bearer ", http.StatusUnauthorized},
		{"wrong key", []string{"s3cr3t"}, "/search", "Bearer nope", http.StatusUnauthorized},
		{"valid key", []string{"s3cr3t"}, "/search", "Bearer s3cr3t", http.StatusOK},
		{"second of two keys", []string{"ops", "s3cr3t"}, "/admin/sync", "Bearer s3cr3t", http.StatusOK},
		{"lowercase scheme", []string{"s3cr3t"}, "/search", "bearer s3cr3t", http.StatusOK},
		{"padded token", []string{"s3cr3t"}, "/search", "Bearer  s3cr3t ", http.StatusOK},
		{"health is open", []string{"s3cr3t"}, "/health", "", http.StatusOK},
		{"metrics is open", []string{"s3cr3t"}, "/metrics", "", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := authRequest(t, tc.keys, tc.path, tc.header).Code; got != tc.want {
				t.Errorf("status = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestBearerAuthMiddleware_ErrorBody(t *testing.T) {
	rr := authRequest(t, []string{"s3cr3t"}, "/search", "")

	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if body.Code != ErrorCodeUnauthorized {
		t.Errorf("code = %s, want %s", body.Code, ErrorCodeUnauthorized)
	}
	if body.Message != "missing authorization header" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestKnownKey(t *testing.T) {
	keys := [][]byte{[]byte("s3cr3t-long"), []byte("ops")}
	if knownKey(keys, "s3cr3t") {
		t.Error("prefix of a key must not match")
	}
	if !knownKey(keys, "ops") {
		t.Error("expected exact key to match")
	}
}
