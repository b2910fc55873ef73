package jwks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeySet satisfies oidc.KeySet without a network round trip;
// VerifySignature either always succeeds or always fails per test.
type fakeKeySet struct {
	err   error
	calls int
}

func (f *fakeKeySet) VerifySignature(_ context.Context, jwtStr string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(jwtStr), nil
}

func signedClaims(claims jwt.MapClaims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, _ := token.SignedString([]byte("test-signing-key-not-verified-by-fake"))
	return s
}

func TestVerify_Success(t *testing.T) {
	v := newVerifier(Config{IssuerURL: "https://idp.example.com/realms/volaticloud"}, newCachedKeySet(&fakeKeySet{}))

	tok := signedClaims(jwt.MapClaims{
		"sub":                "user-1",
		"email":              "a@example.com",
		"preferred_username": "alice",
		"tenant_id":          "tenant-acme",
		"iss":                "https://idp.example.com/realms/volaticloud",
		"realm_access":       map[string]interface{}{"roles": []interface{}{"operator", "admin"}},
	})

	claims, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "tenant-acme", claims.TenantID)
	assert.True(t, claims.IsOperator())
	assert.True(t, claims.HasRole("admin"))
}

func TestVerify_WrongIssuerRejected(t *testing.T) {
	v := newVerifier(Config{IssuerURL: "https://idp.example.com/realms/volaticloud"}, newCachedKeySet(&fakeKeySet{}))

	tok := signedClaims(jwt.MapClaims{"sub": "user-1", "iss": "https://evil.example.com"})

	_, err := v.Verify(context.Background(), tok)
	assert.Error(t, err)
}

func TestVerify_AudienceChecked(t *testing.T) {
	v := newVerifier(Config{IssuerURL: "https://idp.example.com/realms/volaticloud", Audience: "pulse-api"}, newCachedKeySet(&fakeKeySet{}))

	tok := signedClaims(jwt.MapClaims{"sub": "user-1", "iss": "https://idp.example.com/realms/volaticloud", "aud": []interface{}{"other-api"}})

	_, err := v.Verify(context.Background(), tok)
	assert.Error(t, err)
}

func TestVerify_BadSignaturePropagates(t *testing.T) {
	v := newVerifier(Config{IssuerURL: "https://idp.example.com/realms/volaticloud"}, newCachedKeySet(&fakeKeySet{err: errors.New("signature mismatch")}))

	tok := signedClaims(jwt.MapClaims{"sub": "user-1", "iss": "https://idp.example.com/realms/volaticloud"})

	_, err := v.Verify(context.Background(), tok)
	assert.Error(t, err)
}

func TestCachedKeySet_Healthy(t *testing.T) {
	c := newCachedKeySet(&fakeKeySet{})
	assert.True(t, c.Healthy())

	c.mu.Lock()
	c.lastSuccess = time.Now().Add(-staleAfter * 2)
	c.mu.Unlock()
	assert.False(t, c.Healthy())
}

func TestCachedKeySet_RetriesOnceOnFailure(t *testing.T) {
	fake := &fakeKeySet{err: errors.New("transient")}
	c := newCachedKeySet(fake)

	_, err := c.VerifySignature(context.Background(), "x")
	assert.Error(t, err)
	assert.Equal(t, 2, fake.calls)

	fake.err = nil
	_, err = c.VerifySignature(context.Background(), "x")
	assert.NoError(t, err)
}
