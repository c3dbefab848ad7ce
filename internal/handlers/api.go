package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/quotes"
	"github.com/LucaVano/app-oferte-10-05/internal/store"
)

// DeleteOffer removes a quote with its files.
func (h *Handlers) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.quotes.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to delete offerta", "offer_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Errore durante l'eliminazione dell'offerta")
		return
	}

	writeJSON(w, http.StatusOK, result{Success: true})
}

// SaveOffer rewrites a quote and refreshes its index entry.
func (h *Handlers) SaveOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.quotes.Resave(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to save offerta", "offer_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Errore durante il salvataggio dell'offerta")
		return
	}

	writeJSON(w, http.StatusOK, result{Success: true})
}

// UpdateStatus sets the status posted in the "status" field.
func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Stato non valido")
		return
	}
	status := models.Status(r.PostFormValue("status"))

	err := h.quotes.SetStatus(id, status)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result{Success: true})
	case errors.Is(err, quotes.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "Stato non valido")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	default:
		slog.Error("failed to update status", "offer_id", id, "status", status, "error", err)
		writeError(w, http.StatusInternalServerError, "Errore durante l'aggiornamento dello stato")
	}
}

// NextOfferNumber issues the next offer number.
func (h *Handlers) NextOfferNumber(w http.ResponseWriter, r *http.Request) {
	number, err := h.quotes.NextOfferNumber()
	if err != nil {
		slog.Error("failed to issue offer number", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Impossibile generare il numero offerta"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"next_number": number})
}
