// Package refresh persists refresh-session records: the durable mapping from
// an opaque refresh-session id to the provider refresh token and its owner.
//
// The store is pure persistence. Records are written once per sign-in, read
// on every refresh attempt, and never mutated in place. Expiry is not
// enforced on lookup — Get returns an expired record as-is, because the
// identity provider is the authority for refresh-token validity and rejects
// stale tokens during the exchange call.
package refresh
