package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/devsnap/internal/auth"
	"github.com/sakif/devsnap/internal/service"
)

// AuthHandler manages the GitHub OAuth login flow and session lookup.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, let the service log the user in,
//     redirect to the frontend with the token
//   - HandleMe             → return the logged-in user's profile
//   - HandleLogout         → acknowledge; tokens are stateless
//
// All of the rules live in service.AuthService. This type only moves values
// between HTTP (query params, cookies, redirects) and the service.
type AuthHandler struct {
	auth     *service.AuthService
	stateTTL time.Duration
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. stateTTL sets the lifetime of the
// state cookie and should match the state store's TTL.
func NewAuthHandler(auth *service.AuthService, stateTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		stateTTL: stateTTL,
		logger:   logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// The service generates a random nonce and remembers it server-side. We also
// pin it to this browser in a cookie. The callback must present both.
//
// The state cookie is:
//   - HttpOnly: JavaScript can't read it
//   - SameSite=Lax: sent on the top-level redirect back from GitHub
//   - short-lived: long enough for the user to approve, short enough to limit risk
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	redirectURL, state, err := h.auth.BeginLogin(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(h.stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// On success the browser is sent to {FRONTEND_URL}/auth/callback with the
// token in the query string; the frontend stores it and sends it back as a
// Bearer header from then on.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// GitHub sends ?error=access_denied when the user declines.
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: provider returned an error", slog.String("error", errParam))
	}

	var cookieState string
	if c, err := r.Cookie(auth.StateCookieName); err == nil {
		cookieState = c.Value
	}

	// The state cookie is single-use whatever the outcome.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	result, err := h.auth.CompleteLogin(r.Context(), q.Get("code"), q.Get("state"), cookieState)
	if err != nil {
		h.logger.Warn("auth callback failed", slog.String("error", err.Error()))
		writeError(w, h.logger, err)
		return
	}

	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// HandleMe returns the currently authenticated user's profile, including
// their projects and blogs.
//
// HTTP: GET /auth/me
// Auth: Required (RequireAuth middleware puts the verified claims in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())

	profile, err := h.auth.Me(r.Context(), claims)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// HandleLogout acknowledges a logout.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so there is nothing to clear here. The client
// forgets its token; the token itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.BearerToken(r); ok {
		h.auth.Logout(token)
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Successfully logged out"})
}
