// Package token validates provider-issued bearer access tokens against a
// refreshable JWKS signing-key set.
package token
