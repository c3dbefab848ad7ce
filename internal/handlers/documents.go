package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/LucaVano/app-oferte-10-05/internal/formdecode"
	"github.com/LucaVano/app-oferte-10-05/internal/quotes"
	"github.com/LucaVano/app-oferte-10-05/internal/store"
)

// DownloadPDF sends the stored document of a quote as an attachment.
func (h *Handlers) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	path, err := h.quotes.PDFPath(id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.Error("failed to locate document", "offer_id", id, "error", err)
		}
		redirectFlash(w, r, "/offerta/"+id, "error", "PDF non trovato")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	http.ServeFile(w, r, path)
}

// Preview renders the submitted form to a temporary document.
func (h *Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		slog.Error("failed to parse preview form", "error", err)
		writeError(w, http.StatusBadRequest, uploadMessage(err))
		return
	}

	name, err := h.quotes.Preview(r.Context(), formdecode.FromRequest(r))
	if err != nil {
		slog.Error("failed to generate preview", "error", err)
		writeError(w, http.StatusInternalServerError, "Errore nella generazione dell'anteprima")
		return
	}

	writeJSON(w, http.StatusOK, result{Success: true, PreviewURL: "/preview/" + name})
}

// ServePreview streams a preview document inline.
func (h *Handlers) ServePreview(w http.ResponseWriter, r *http.Request) {
	path, err := h.quotes.PreviewPath(chi.URLParam(r, "filename"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, path)
}

// SendOffer mails the document to the customer.
func (h *Handlers) SendOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.quotes.Send(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, quotes.ErrMailerDisabled):
		writeError(w, http.StatusServiceUnavailable, "Invio e-mail non configurato")
	case errors.Is(err, quotes.ErrNoRecipient):
		writeError(w, http.StatusBadRequest, "L'offerta non ha un indirizzo e-mail")
	default:
		slog.Error("failed to send offerta", "offer_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Errore durante l'invio dell'offerta")
	}
}
