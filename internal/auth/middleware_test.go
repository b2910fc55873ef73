package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/jwks"
)

type fakeKeySet struct{ err error }

func (f *fakeKeySet) VerifySignature(_ context.Context, s string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(s), nil
}

func signedToken(claims jwt.MapClaims) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, _ := tok.SignedString([]byte("test-key"))
	return s
}

func TestMiddleware_ValidTokenSetsUserContext(t *testing.T) {
	v := jwks.NewVerifierForTest(jwks.Config{IssuerURL: "https://idp.example.com"}, &fakeKeySet{})
	var captured *UserContext
	handler := RequireAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = GetUserContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(jwt.MapClaims{"sub": "user-1", "iss": "https://idp.example.com"}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-1", captured.Subject)
}

func TestMiddleware_MissingHeaderRejected(t *testing.T) {
	v := jwks.NewVerifierForTest(jwks.Config{IssuerURL: "https://idp.example.com"}, &fakeKeySet{})
	handler := RequireAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_OptionalAllowsMissingHeader(t *testing.T) {
	v := jwks.NewVerifierForTest(jwks.Config{IssuerURL: "https://idp.example.com"}, &fakeKeySet{})
	ran := false
	handler := OptionalAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
		_, err := GetUserContext(r.Context())
		assert.Error(t, err)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, ran)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddleware_BadSignatureRejected(t *testing.T) {
	v := jwks.NewVerifierForTest(jwks.Config{IssuerURL: "https://idp.example.com"}, &fakeKeySet{err: errors.New("bad sig")})
	handler := RequireAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
