// Package handlers provides HTTP handlers for the quotes app.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/LucaVano/app-oferte-10-05/internal/auth"
	"github.com/LucaVano/app-oferte-10-05/internal/middleware"
	"github.com/LucaVano/app-oferte-10-05/internal/quotes"
	"github.com/LucaVano/app-oferte-10-05/internal/templates"
)

// multipartMemory is how much of a multipart form is kept in memory before
// file parts spill to disk.
const multipartMemory = 32 << 20

// Handlers provides HTTP handlers for the quotes app.
type Handlers struct {
	quotes      *quotes.Service
	authService *auth.Service
	templates   *templates.Engine
	maxUpload   int64
}

// New creates a new handlers instance. maxUploadMB caps the size of a
// submitted form including images.
func New(quotesService *quotes.Service, authService *auth.Service, tmpl *templates.Engine, maxUploadMB int) *Handlers {
	return &Handlers{
		quotes:      quotesService,
		authService: authService,
		templates:   tmpl,
		maxUpload:   int64(maxUploadMB) << 20,
	}
}

// Register mounts the login routes and the session-protected quote routes.
func (h *Handlers) Register(r chi.Router) {
	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(h.authService))

		r.Get("/", h.Index)
		r.Get("/offerte-in-attesa", h.PendingOffers)
		r.Get("/offerte-accettate", h.AcceptedOffers)

		r.Get("/nuova-offerta", h.NewOfferPage)
		r.Post("/nuova-offerta", h.CreateOffer)

		r.Route("/offerta/{id}", func(r chi.Router) {
			r.Get("/", h.ViewOffer)
			r.Get("/json", h.OfferJSON)
			r.Get("/modifica", h.EditOfferPage)
			r.Post("/modifica", h.UpdateOffer)
			r.Get("/pdf", h.DownloadPDF)
			r.Post("/elimina", h.DeleteOffer)
			r.Post("/salva", h.SaveOffer)
			r.Post("/invia", h.SendOffer)
		})

		r.Get("/api/next-offer-number", h.NextOfferNumber)
		r.Post("/update_offer_status/{id}", h.UpdateStatus)
		r.Post("/preview_pdf", h.Preview)
		r.Get("/preview/{filename}", h.ServePreview)
	})
}

// pageData builds the common page fields from the request.
func (h *Handlers) pageData(r *http.Request, title, nav string) templates.PageData {
	data := templates.PageData{
		Title:     title,
		ActiveNav: nav,
		Flash:     flashFromQuery(r),
	}
	if user := middleware.GetUser(r.Context()); user != nil {
		data.User = &templates.User{Username: user.Username}
	}
	return data
}

func (h *Handlers) render(w http.ResponseWriter, name string, data templates.PageData) {
	if err := h.templates.Render(w, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// parseForm reads a urlencoded or multipart body within the upload limit.
func (h *Handlers) parseForm(w http.ResponseWriter, r *http.Request) error {
	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	}
	err := r.ParseMultipartForm(multipartMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	return err
}

// flashFromQuery reads the ?success= and ?error= messages.
func flashFromQuery(r *http.Request) *templates.Flash {
	if msg := r.URL.Query().Get("error"); msg != "" {
		return &templates.Flash{Type: "error", Message: msg}
	}
	if msg := r.URL.Query().Get("success"); msg != "" {
		return &templates.Flash{Type: "success", Message: msg}
	}
	return nil
}

// redirectFlash redirects to path with a flash message of kind "success"
// or "error".
func redirectFlash(w http.ResponseWriter, r *http.Request, path, kind, msg string) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	http.Redirect(w, r, path+sep+kind+"="+url.QueryEscape(msg), http.StatusSeeOther)
}

// result is the envelope returned by the JSON endpoints.
type result struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write json response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, result{Success: false, Error: msg})
}
