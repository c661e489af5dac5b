// Package httpapi exposes the gateway over HTTP: the ext-authz-style check
// endpoint consumed by the edge proxy plus the rate-limited
// signup/verification endpoints.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrEthical07/authgate"
)

// Server wires the Engine into an HTTP handler tree.
type Server struct {
	engine   *authgate.Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	throttle *ipThrottle
}

// New creates the HTTP surface. gatherer may be nil to omit /metrics.
func New(engine *authgate.Engine, logger *slog.Logger, gatherer prometheus.Gatherer) *Server {
	return &Server{
		engine:   engine,
		logger:   logger,
		gatherer: gatherer,
		// 30/min with burst 10 per IP: loose enough for humans, tight
		// enough to keep scripted loops off the Redis limiter.
		throttle: newIPThrottle(30, 10),
	}
}

// Close stops background goroutines.
func (s *Server) Close() {
	s.throttle.stop()
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/auth/check", s.handleCheck)
	r.Post("/auth/signout", s.handleSignOut)

	r.Group(func(r chi.Router) {
		r.Use(s.throttle.middleware)
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/verify", s.handleVerify)
		r.Post("/auth/resend", s.handleResend)
	})

	return r
}

// handleCheck is the per-request allow/deny call made by the reverse proxy.
// 200 allows with optional injected headers; 401 denies, optionally carrying
// Set-Cookie directives the proxy must forward on its denial response.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	ctx := authgate.WithClientIP(r.Context(), clientIP(r))

	res := s.engine.Check(ctx, r.Header.Get("Cookie"))

	for _, c := range res.SetCookies {
		w.Header().Add("Set-Cookie", c)
	}

	if !res.Allowed {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	for name, value := range res.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(http.StatusOK)
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password required")
		return
	}

	ctx := authgate.WithClientIP(r.Context(), clientIP(r))
	if err := s.engine.SignUp(ctx, req.Email, req.Password); err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// handleVerify confirms the emailed code and, when the provider hands back a
// sign-in session, completes sign-in in the same round trip so the browser
// leaves with both session cookies set.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "email and code required")
		return
	}

	ctx := authgate.WithClientIP(r.Context(), clientIP(r))
	sessionToken, err := s.engine.VerifySignup(ctx, req.Email, req.Code)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	if sessionToken == "" {
		// Provider confirmed the account but offered no sign-in session;
		// the client signs in through the provider's hosted flow.
		writeJSON(w, http.StatusOK, map[string]any{"confirmed": true})
		return
	}

	signIn, err := s.engine.CompleteSignIn(ctx, req.Email, sessionToken)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	for _, c := range signIn.SetCookies {
		w.Header().Add("Set-Cookie", c)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"confirmed": true,
		"subject":   signIn.Subject,
		"email":     signIn.Email,
	})
}

type resendRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	var req resendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	ctx := authgate.WithClientIP(r.Context(), clientIP(r))
	if err := s.engine.ResendCode(ctx, req.Email); err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	cookies, err := s.engine.SignOut(r.Context(), r.Header.Get("Cookie"))
	if err != nil {
		s.logger.Error("sign-out failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "sign-out failed")
		return
	}

	for _, c := range cookies {
		w.Header().Add("Set-Cookie", c)
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeEngineError maps engine errors onto HTTP. Rate-limit denials become a
// structured 429 carrying the retry-after both in the header and the body so
// clients can drive a cooldown countdown.
func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var rle *authgate.RateLimitError
	if errors.As(err, &rle) {
		w.Header().Set("Retry-After", strconv.Itoa(rle.RetryAfterSeconds()))
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":               rle.Error(),
			"retry_after_seconds": rle.RetryAfterSeconds(),
			"retry_after_minutes": rle.RetryAfterMinutes(),
		})
		return
	}

	s.logger.Warn("request failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))

	if errors.Is(err, authgate.ErrProviderUnavailable) {
		writeError(w, http.StatusBadGateway, "identity provider error")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
