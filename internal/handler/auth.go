package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nkoleva/sflogin/internal/auth"
	"github.com/nkoleva/sflogin/internal/salesforce"
	"github.com/nkoleva/sflogin/internal/service"
)

// AuthHandler owns the Salesforce login flow and session endpoints.
//
// Endpoints:
//   - HandleSalesforceLogin    → redirect the browser to Salesforce's
//     authorization page
//   - HandleSalesforceCallback → receive the code, run the
//     exchange → profile → link sequence, set the session cookie
//   - HandleLogout             → clear the session cookie
//   - HandleMe                 → return the logged-in user's profile
type AuthHandler struct {
	settings *service.SettingsService
	login    *service.LoginService
	logger   *slog.Logger

	// Redirect targets; the callback never surfaces error detail, it only
	// sends the browser to one of these.
	loginPath string // on any failure
	frontPath string // on success
}

// NewAuthHandler creates an AuthHandler. All dependencies are injected here;
// the handler has no knowledge of how they're constructed.
func NewAuthHandler(
	settings *service.SettingsService,
	login *service.LoginService,
	logger *slog.Logger,
	loginPath, frontPath string,
) *AuthHandler {
	return &AuthHandler{
		settings:  settings,
		login:     login,
		logger:    logger,
		loginPath: loginPath,
		frontPath: frontPath,
	}
}

// HandleSalesforceLogin redirects the user to Salesforce's authorization page.
//
// HTTP: GET /salesforce/login
//
// The provider is rebuilt from the settings store on every request, so an
// admin edit to the connected-app settings takes effect immediately.
func (h *AuthHandler) HandleSalesforceLogin(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.ProviderConfig(r.Context())
	if err != nil {
		h.logger.Warn("salesforce login: not configured", slog.String("error", err.Error()))
		http.Redirect(w, r, h.loginPath, http.StatusFound)
		return
	}

	http.Redirect(w, r, salesforce.New(cfg).AuthURL(), http.StatusFound)
}

// HandleSalesforceCallback completes the login flow.
//
// HTTP: GET /salesforce/callback?code=xxx
//
// The sequence is strictly linear: code → token exchange → profile fetch →
// link-and-login → session cookie. The first failure anywhere ends the flow;
// the cause is logged and the browser is sent to the login page with no
// error detail, so provider error payloads never reach the end user.
//
// No OAuth state parameter is validated here. The inbound redirect carries
// only the code; with a fixed, pre-vetted login URL and an exact-match
// redirect URI registered at Salesforce this mirrors the long-standing
// behavior of the flow, but it does leave the callback open to CSRF-style
// forged logins. Revisit before exposing this to an untrusted login URL.
func (h *AuthHandler) HandleSalesforceCallback(w http.ResponseWriter, r *http.Request) {
	// Step 1: the redirect must carry a code. If not, bail before any
	// outbound call is made.
	code := r.URL.Query().Get("code")
	if code == "" {
		h.logger.Warn("salesforce callback: missing authorization code")
		http.Redirect(w, r, h.loginPath, http.StatusFound)
		return
	}

	cfg, err := h.settings.ProviderConfig(r.Context())
	if err != nil {
		h.logger.Error("salesforce callback: loading provider config", slog.String("error", err.Error()))
		http.Redirect(w, r, h.loginPath, http.StatusFound)
		return
	}
	provider := salesforce.New(cfg)

	// Step 2: exchange the code for tokens. r.Context() flows through, so a
	// cancelled request cancels the in-flight call to Salesforce.
	tokens, err := provider.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error("salesforce callback: token exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.loginPath, http.StatusFound)
		return
	}

	// Step 3: fetch the identity behind the token.
	profile, err := provider.FetchProfile(r.Context(), tokens.IdentityURL, tokens.AccessToken)
	if err != nil {
		h.logger.Error("salesforce callback: profile fetch failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.loginPath, http.StatusFound)
		return
	}

	// Step 4: link or provision the local account. Nothing has been written
	// anywhere before this point, so an earlier failure leaves no residue.
	result, err := h.login.LinkAndLogin(r.Context(), profile, tokens)
	if err != nil {
		h.logger.Error("salesforce callback: account linking failed",
			slog.String("email", profile.Email),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, h.loginPath, http.StatusFound)
		return
	}

	// Step 5: establish the session and land on the front page.
	// HttpOnly keeps the token away from page scripts; SameSite=Lax keeps it
	// off cross-site POSTs while still sent on the redirect we're issuing.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int((15 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.frontPath, http.StatusFound)
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// POST, not GET: logout changes state, and a GET would be prefetchable.
// The JWT stays technically valid until expiry, but without the cookie the
// browser can't present it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets userID in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Unreachable on a RequireAuth-protected route, but be safe.
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.login.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: user not found", slog.String("userID", userID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
