package api

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointments/internal/auth"
	"github.com/hackgods/clinic-appointments/internal/clinic"
	"github.com/hackgods/clinic-appointments/internal/password"
)

const (
	stateCookie = "clinic.oauth_state"
	stateTTL    = 10 * time.Minute
)

// The token reaches the opener window only, and only at the client origin.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
  <body>
    <script>
      if (window.opener) {
        window.opener.postMessage({ type: 'GOOGLE_AUTH_SUCCESS', token: {{.Token}} }, {{.Origin}});
        window.close();
      } else {
        window.location.href = {{.Origin}};
      }
    </script>
  </body>
</html>
`))

type AuthHandler struct {
	users         *clinic.UserService
	linker        *auth.Linker
	provider      auth.Provider
	sessions      auth.SessionStore
	tokens        *auth.TokenIssuer
	clientOrigin  string
	secureCookies bool
	sessionTTL    time.Duration
}

func (h *AuthHandler) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge / time.Second),
	}
	if maxAge < 0 {
		c.MaxAge = -1
	}
	// cross-site clients only get the cookie back with SameSite=None, which needs Secure
	if h.secureCookies {
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, h.cookie(stateCookie, state, stateTTL))
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback finishes the handshake: it links the profile to a user,
// opens a session and hands a bearer token to the opener window.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	q := r.URL.Query()

	state, err := r.Cookie(stateCookie)
	http.SetCookie(w, h.cookie(stateCookie, "", -1))
	if err != nil || state.Value == "" || state.Value != q.Get("state") {
		log.Warn().Msg("oauth state mismatch")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if e := q.Get("error"); e != "" {
		log.Info().Str("error", e).Msg("oauth declined")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	profile, err := h.provider.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Warn().Err(err).Msg("oauth exchange failed")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	u, err := h.linker.FindOrCreate(r.Context(), *profile)
	switch {
	case errors.Is(err, auth.ErrEmailRequired):
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	case errors.Is(err, auth.ErrNameRequired):
		writeError(w, http.StatusBadRequest, "First name and last name are required")
		return
	case err != nil:
		log.Error().Err(err).Msg("link google user")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	sid, err := h.sessions.Create(r.Context(), u.ID.Hex())
	if err != nil {
		log.Error().Err(err).Msg("create session")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	http.SetCookie(w, h.cookie(auth.SessionCookie, sid, h.sessionTTL))

	token, err := h.tokens.Issue(auth.IdentityOf(u))
	if err != nil {
		logError(r, err, "issue token")
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := callbackPage.Execute(w, struct{ Token, Origin string }{token, h.clientOrigin}); err != nil {
		log.Error().Err(err).Msg("render callback page")
	}
}

func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	res := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{Authenticated: res.Authenticated, User: res.Identity})
}

// Logout ends the server-side session; bearer tokens stay valid until they expire.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.SessionCookie); err == nil && c.Value != "" {
		if err := h.sessions.Destroy(r.Context(), c.Value); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("destroy session during logout")
		}
	}
	http.SetCookie(w, h.cookie(auth.SessionCookie, "", -1))
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in clinic.SignupInput
	if !decodeAndValidate(w, r, &in) {
		return
	}

	u, err := h.users.Signup(r.Context(), in)
	if err != nil {
		if errors.Is(err, clinic.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, "User already exists")
			return
		}
		logError(r, err, "signup")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondToken(w, r, u, http.StatusCreated)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in clinic.LoginInput
	if !decodeAndValidate(w, r, &in) {
		return
	}

	u, err := h.users.GetByEmail(r.Context(), in.Email)
	if err != nil && !errors.Is(err, clinic.ErrUserNotFound) {
		logError(r, err, "login lookup")
		writeError(w, http.StatusInternalServerError, "An error occured while logging in.")
		return
	}
	if u == nil || !password.Check(u.PasswordHash, in.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := h.users.RecordLogin(r.Context(), u.ID, "password"); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("record login")
	}
	h.respondToken(w, r, u, http.StatusOK)
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, r *http.Request, u *clinic.User, status int) {
	token, err := h.tokens.Issue(auth.IdentityOf(u))
	if err != nil {
		logError(r, err, "issue token")
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, status, TokenResponse{Token: token})
}
