package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/LucaVano/app-oferte-10-05/internal/middleware"
)

// loginData is passed to the login template.
type loginData struct {
	Next string
}

// LoginPage renders the login page.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	next := middleware.SafeNext(r.URL.Query().Get("next"))

	// If already logged in, go straight on
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if _, err := h.authService.ValidateSession(cookie.Value); err == nil {
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		}
	}

	data := h.pageData(r, "Accesso", "")
	data.Data = loginData{Next: next}
	h.render(w, "login", data)
}

// Login handles the login form submission.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/login?error=Dati+non+validi", http.StatusSeeOther)
		return
	}

	next := middleware.SafeNext(r.FormValue("next"))
	back := "/login"
	if next != "/" {
		back += "?next=" + url.QueryEscape(next)
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		redirectFlash(w, r, back, "error", "Username e password sono obbligatori")
		return
	}

	user, err := h.authService.Authenticate(username, password)
	if err != nil {
		slog.Info("failed login attempt", "username", username)
		redirectFlash(w, r, back, "error", "Username o password non validi")
		return
	}

	session, err := h.authService.CreateSession(user)
	if err != nil {
		slog.Error("failed to create session", "error", err, "username", user.Username)
		redirectFlash(w, r, back, "error", "Impossibile creare la sessione")
		return
	}

	middleware.SetSessionCookie(w, r, session.Token)
	slog.Info("user logged in", "username", user.Username)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout clears the session cookie.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, r)
	redirectFlash(w, r, "/login", "success", "Logout effettuato con successo")
}
