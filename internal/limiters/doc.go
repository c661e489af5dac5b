// Package limiters wires the rate engine to the gateway's write endpoints:
// signup initiation, verification, and code resend, each limited per
// normalized email and optionally per client IP.
package limiters
