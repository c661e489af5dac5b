// Package session defines the cached access-session value object and its
// Redis-backed store.
//
// Session data is cached under "sess:{accessSessionID}" as JSON with a TTL
// equal to the remaining access-token lifetime. The provider refresh token is
// present on the value object only transiently, between a provider exchange
// and persistence: Save always strips it before writing, so refresh material
// never touches the cache.
package session
