package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/auth"
	"github.com/volaticloud/pulse/internal/jwks"
)

func TestRequireOperatorRole_RejectsNonOperator(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/operator/rules", nil)
	req = withAuthedTenant(req, "tenant-1")
	w := httptest.NewRecorder()

	requireOperatorRole(next).ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	require.False(t, called)
}

func TestRequireOperatorRole_AllowsOperatorAndMarksAuthorization(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := auth.GetUserContext(r.Context())
		require.NoError(t, err)
		require.True(t, user.IsOperator())
		w.WriteHeader(http.StatusOK)
	})

	claims := &jwks.Claims{Subject: "operator-1", TenantID: "tenant-1", Roles: []string{"operator"}}
	req := httptest.NewRequest(http.MethodGet, "/operator/rules", nil)
	req = req.WithContext(auth.SetUserContext(req.Context(), claims))
	w := httptest.NewRecorder()

	requireOperatorRole(next).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireOperatorRole_RejectsMissingUserContext(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run without user context")
	})

	req := httptest.NewRequest(http.MethodGet, "/operator/rules", nil)
	w := httptest.NewRecorder()

	requireOperatorRole(next).ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
}
