package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const testSecret = "test-secret"

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func runAuth(mw echo.MiddlewareFunc, header string) (string, int) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	err := mw(func(c echo.Context) error {
		seen = ExternalID(c)
		return c.NoContent(http.StatusOK)
	})(c)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return seen, he.Code
		}
		return seen, http.StatusInternalServerError
	}
	return seen, rec.Code
}

func TestJWTAuthMiddleware(t *testing.T) {
	valid := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	expired := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	wrongKey := signed(t, jwt.SigningMethodHS256, []byte("other"), jwt.RegisteredClaims{Subject: "u1"})
	noSubject := signed(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.RegisteredClaims{})

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantID   string
	}{
		{"valid token", "Bearer " + valid, http.StatusOK, "u1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, ""},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, ""},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, ""},
		{"no subject", "Bearer " + noSubject, http.StatusUnauthorized, ""},
	}

	mw := JWTAuthMiddleware(testSecret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, code := runAuth(mw, tt.header)
			if code != tt.wantCode {
				t.Errorf("expected status %d, got %d", tt.wantCode, code)
			}
			if id != tt.wantID {
				t.Errorf("expected external id %q, got %q", tt.wantID, id)
			}
		})
	}
}

type stubVerifier map[string]string

func (s stubVerifier) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	uid, ok := s[idToken]
	if !ok {
		return nil, errors.New("token rejected")
	}
	return &auth.Token{UID: uid}, nil
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	mw := FirebaseAuthMiddleware(stubVerifier{"good": "firebase-uid"})

	id, code := runAuth(mw, "Bearer good")
	if code != http.StatusOK || id != "firebase-uid" {
		t.Errorf("expected 200 with firebase-uid, got %d %q", code, id)
	}

	if _, code := runAuth(mw, "Bearer bad"); code != http.StatusUnauthorized {
		t.Errorf("expected 401 for rejected token, got %d", code)
	}
}
