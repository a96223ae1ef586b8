package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-secret")

func TestIssueAndParseToken(t *testing.T) {
	token, expiresAt, err := IssueToken(testSecret, "u1", "doctor@mediq.com", "physician", nil, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Errorf("expiresAt %s is not in the future", expiresAt)
	}

	claims, err := ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "u1" {
		t.Errorf("Subject = %q, want u1", claims.Subject)
	}
	if claims.Role != "physician" {
		t.Errorf("Role = %q, want physician", claims.Role)
	}
	if claims.Username != "doctor@mediq.com" {
		t.Errorf("Username = %q", claims.Username)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := IssueToken(testSecret, "u1", "n", "nurse", nil, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken([]byte("other-secret"), token); err == nil {
		t.Fatal("ParseToken accepted token signed with a different secret")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, _, err := IssueToken(testSecret, "u1", "n", "nurse", nil, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := ParseToken(testSecret, token); err == nil {
		t.Fatal("ParseToken accepted an expired token")
	}
}

func TestJWTMiddleware(t *testing.T) {
	token, _, err := IssueToken(testSecret, "u7", "patient@example.com", "patient", []string{"p001", "p004"}, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid token", "Bearer " + token, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := JWTMiddleware(testSecret)(func(c echo.Context) error {
				ctx := c.Request().Context()
				if got := RoleFromContext(ctx); got != "patient" {
					t.Errorf("RoleFromContext = %q", got)
				}
				if got := PatientIDsFromContext(ctx); len(got) != 2 || got[0] != "p001" {
					t.Errorf("PatientIDsFromContext = %v", got)
				}
				return c.NoContent(http.StatusOK)
			})

			err := handler(c)
			status := rec.Code
			if err != nil {
				he, ok := err.(*echo.HTTPError)
				if !ok {
					t.Fatalf("unexpected error type: %v", err)
				}
				status = he.Code
			}
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
		})
	}
}
