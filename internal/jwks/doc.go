// Package jwks verifies bearer tokens presented to the operator and
// customer HTTP surfaces (spec.md §6). It wraps coreos/go-oidc's
// RemoteKeySet, the same JWKS-fetch primitive the teacher used inside
// internal/auth/keycloak.go, in a small layer (cache.go) that retries a
// failed verification once and tracks JWKS-endpoint reachability for
// /ready. Key caching is RemoteKeySet's own fetch-on-miss behaviour;
// there is no TTL-driven refresh and no bounded stale-serve window.
package jwks
