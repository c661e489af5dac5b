// Package rate implements the distributed rate-limiter engine: fixed-window
// and sliding-window counters evaluated against Redis.
//
// Both algorithms execute as a single server-side Lua script so the
// check-and-increment cannot race between distributed callers. This is the
// one place in the gateway where atomicity is a security property rather
// than a performance concern.
package rate
