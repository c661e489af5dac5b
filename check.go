package authgate

import (
	"context"
	"log/slog"
)

// CheckResult is the answer to one authorization check: allow/deny plus the
// Set-Cookie and header-injection directives the edge proxy must apply.
type CheckResult struct {
	Allowed    bool
	SetCookies []string
	Headers    map[string]string
}

// Check answers an authorization check for the edge proxy: it parses the raw
// Cookie header, resolves the session, and maps the outcome onto allow/deny
// plus cookie-rotation and header-injection directives. Denials never return
// an error; an infrastructure failure denies and logs.
func (e *Engine) Check(ctx context.Context, cookieHeader string) CheckResult {
	cookies := e.config.Cookies.parseCookies(cookieHeader)

	res, err := e.resolver.Resolve(ctx, cookies)
	if err != nil {
		e.logger.Error("session resolution failed", slog.String("error", err.Error()))
		e.metrics.RecordCheckDenied()
		return CheckResult{}
	}

	if res.Session == nil {
		e.metrics.RecordCheckDenied()
		out := CheckResult{}
		if res.ClearRefreshCookie {
			out.SetCookies = append(out.SetCookies, clearCookie(e.config.Cookies.RefreshName))
		}
		return out
	}

	e.metrics.RecordCheckAllowed()
	out := CheckResult{Allowed: true}

	if res.NewSessionID != "" {
		out.SetCookies = append(out.SetCookies,
			setCookie(e.config.Cookies.AccessName, res.NewSessionID, res.NewExpiry))
	}

	if e.config.Identity.InjectHeaders || e.config.Identity.InjectAuthorization {
		out.Headers = map[string]string{}
		if e.config.Identity.InjectHeaders {
			out.Headers["X-Auth-Subject"] = res.Session.Subject
			out.Headers["X-Auth-Email"] = res.Session.Email
		}
		if e.config.Identity.InjectAuthorization {
			out.Headers["Authorization"] = "Bearer " + res.Session.AccessToken
		}
	}

	return out
}
