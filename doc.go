// Package authgate provides a browser-facing authentication gateway core:
// cookie-based session resolution with transparent refresh-token rotation,
// JWKS-backed access-token validation, and a Redis-backed distributed rate
// limiter protecting signup and verification endpoints.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. All cross-request state lives in the shared Redis cache and
// the durable refresh-token store; no in-process mutex spans requests.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// sentinel errors, and value types ([CheckResult], [Resolution],
// [SignInResult]). Cross-cutting coordination — atomic rate-limit scripts,
// per-endpoint limiter wiring, the HTTP surface, Prometheus collectors —
// lives under internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Hash passwords, store credentials, or generate verification codes.
//     Those belong to the external identity provider behind
//     [provider.IdentityProvider].
//   - Cache refresh-token material in the access-session cache. Refresh
//     tokens live only in the durable [refresh.Store].
//   - Retry a rejected refresh exchange. Provider rejection is a terminal
//     denial for the request.
package authgate
