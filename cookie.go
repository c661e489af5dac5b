package authgate

import (
	"fmt"
	"net/http"
	"time"
)

// expiredCookieDate is the canonical epoch date used to clear a cookie.
const expiredCookieDate = "Thu, 01 Jan 1970 00:00:00 GMT"

// setCookie formats a Set-Cookie directive for the edge proxy. The attribute
// set is fixed: session cookies are always host-wide, HttpOnly, Secure, and
// SameSite=Strict, with an explicit Expires.
func setCookie(name, value string, expires time.Time) string {
	return fmt.Sprintf("%s=%s; Path=/; HttpOnly; Secure; SameSite=Strict; Expires=%s",
		name, value, expires.UTC().Format(http.TimeFormat))
}

// clearCookie formats an already-expired Set-Cookie directive.
func clearCookie(name string) string {
	return fmt.Sprintf("%s=; Path=/; HttpOnly; Secure; SameSite=Strict; Expires=%s",
		name, expiredCookieDate)
}

// parseCookies extracts the two session cookie values from a raw Cookie
// header. Anything unparseable is treated as absent.
func (c CookieConfig) parseCookies(cookieHeader string) Cookies {
	parsed, err := http.ParseCookie(cookieHeader)
	if err != nil {
		return Cookies{}
	}

	var out Cookies
	for _, ck := range parsed {
		switch ck.Name {
		case c.AccessName:
			out.AccessSessionID = ck.Value
		case c.RefreshName:
			out.RefreshSessionID = ck.Value
		}
	}
	return out
}
