package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/LucaVano/app-oferte-10-05/internal/formdecode"
	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/quotes"
	"github.com/LucaVano/app-oferte-10-05/internal/store"
	"github.com/LucaVano/app-oferte-10-05/internal/templates"
)

const msgNotFound = "Offerta non trovata"

// indexData is passed to the index template.
type indexData struct {
	All      []*models.Record
	Pending  []*models.Record
	Accepted []*models.Record
}

// filteredData is passed to the filtered list template.
type filteredData struct {
	Icon   string
	Offers []*models.Record
}

// formData is passed to the quote form template.
type formData struct {
	IsEdit     bool
	Action     string
	Offerta    *models.Record
	NextNumber string
	TodayDate  string
}

// Index lists every quote split by status.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(r, "Offerte", "index")

	all, err := h.quotes.List()
	if err != nil {
		slog.Error("failed to list offerte", "error", err)
		data.Flash = errorFlash("Errore durante il caricamento delle offerte")
		all = []*models.Record{}
	}

	data.Data = indexData{
		All:      all,
		Pending:  quotes.FilterByStatus(all, models.StatusPending),
		Accepted: quotes.FilterByStatus(all, models.StatusAccepted),
	}
	h.render(w, "index", data)
}

// PendingOffers lists the quotes awaiting an answer.
func (h *Handlers) PendingOffers(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, models.StatusPending, "Offerte in Attesa", "fa-clock", "pending")
}

// AcceptedOffers lists the accepted quotes.
func (h *Handlers) AcceptedOffers(w http.ResponseWriter, r *http.Request) {
	h.filtered(w, r, models.StatusAccepted, "Offerte Accettate", "fa-check-circle", "accepted")
}

func (h *Handlers) filtered(w http.ResponseWriter, r *http.Request, status models.Status, title, icon, nav string) {
	data := h.pageData(r, title, nav)

	offers, err := h.quotes.ListByStatus(status)
	if err != nil {
		slog.Error("failed to list offerte", "status", status, "error", err)
		data.Flash = errorFlash("Errore durante il caricamento delle offerte")
		offers = []*models.Record{}
	}

	data.Data = filteredData{Icon: icon, Offers: offers}
	h.render(w, "filtered", data)
}

// NewOfferPage renders an empty form with a freshly issued offer number.
func (h *Handlers) NewOfferPage(w http.ResponseWriter, r *http.Request) {
	number, err := h.quotes.NextOfferNumber()
	if err != nil {
		slog.Error("failed to issue offer number", "error", err)
		redirectFlash(w, r, "/", "error", "Impossibile generare il numero offerta")
		return
	}

	data := h.pageData(r, "Nuova Offerta", "new")
	data.Data = formData{
		Action:     "/nuova-offerta",
		NextNumber: number,
		TodayDate:  h.quotes.Today(),
	}
	h.render(w, "form", data)
}

// CreateOffer stores a submitted quote and shows it.
func (h *Handlers) CreateOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		slog.Error("failed to parse offerta form", "error", err)
		redirectFlash(w, r, "/nuova-offerta", "error", uploadMessage(err))
		return
	}

	rec, err := h.quotes.Create(r.Context(), formdecode.FromRequest(r))
	if err != nil {
		var verr *quotes.ValidationError
		switch {
		case errors.As(err, &verr):
			redirectFlash(w, r, "/nuova-offerta", "error", validationMessage(verr))
		case rec != nil:
			slog.Error("offerta saved without document", "offer_id", rec.ID, "error", err)
			redirectFlash(w, r, "/offerta/"+rec.ID, "error", "Offerta salvata, ma la generazione del PDF non è riuscita")
		default:
			slog.Error("failed to create offerta", "error", err)
			redirectFlash(w, r, "/", "error", "Si è verificato un errore durante la creazione dell'offerta")
		}
		return
	}

	redirectFlash(w, r, "/offerta/"+rec.ID, "success", "Offerta creata con successo!")
}

// ViewOffer shows one quote.
func (h *Handlers) ViewOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.quotes.Get(id)
	if err != nil {
		h.missingOffer(w, r, id, err)
		return
	}

	data := h.pageData(r, "Offerta "+rec.OfferNumber, "")
	data.Data = rec
	h.render(w, "view", data)
}

// OfferJSON returns the stored record as JSON.
func (h *Handlers) OfferJSON(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.quotes.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgNotFound})
		return
	}
	if err != nil {
		slog.Error("failed to load offerta", "offer_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Errore nel caricamento dell'offerta"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// EditOfferPage renders the form filled with a stored quote.
func (h *Handlers) EditOfferPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.quotes.Get(id)
	if err != nil {
		h.missingOffer(w, r, id, err)
		return
	}

	data := h.pageData(r, "Modifica Offerta "+rec.OfferNumber, "")
	data.Data = formData{
		IsEdit:    true,
		Action:    "/offerta/" + rec.ID + "/modifica",
		Offerta:   rec,
		TodayDate: h.quotes.Today(),
	}
	h.render(w, "form", data)
}

// UpdateOffer saves an edited quote.
func (h *Handlers) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	back := "/offerta/" + id + "/modifica"

	if err := h.parseForm(w, r); err != nil {
		slog.Error("failed to parse offerta form", "offer_id", id, "error", err)
		redirectFlash(w, r, back, "error", uploadMessage(err))
		return
	}

	rec, err := h.quotes.Update(r.Context(), id, formdecode.FromRequest(r))
	if err != nil {
		var verr *quotes.ValidationError
		switch {
		case errors.Is(err, store.ErrNotFound):
			redirectFlash(w, r, "/", "error", msgNotFound)
		case errors.As(err, &verr):
			redirectFlash(w, r, back, "error", validationMessage(verr))
		case rec != nil:
			slog.Error("offerta updated without document", "offer_id", id, "error", err)
			redirectFlash(w, r, "/offerta/"+id, "error", "Offerta aggiornata, ma la generazione del PDF non è riuscita")
		default:
			slog.Error("failed to update offerta", "offer_id", id, "error", err)
			redirectFlash(w, r, "/", "error", "Si è verificato un errore durante l'aggiornamento dell'offerta")
		}
		return
	}

	redirectFlash(w, r, "/offerta/"+id, "success", "Offerta aggiornata con successo!")
}

// missingOffer sends page flows back to the list when a quote cannot be loaded.
func (h *Handlers) missingOffer(w http.ResponseWriter, r *http.Request, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		redirectFlash(w, r, "/", "error", msgNotFound)
		return
	}
	slog.Error("failed to load offerta", "offer_id", id, "error", err)
	redirectFlash(w, r, "/", "error", "Errore nel caricamento dell'offerta")
}

var fieldLabels = map[string]string{
	"customer":     "cliente",
	"offer_number": "numero offerta",
}

func validationMessage(verr *quotes.ValidationError) string {
	if errors.Is(verr, quotes.ErrOfferNumberTaken) {
		return "Esiste già un'offerta con questo numero per il cliente"
	}
	labels := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		if l, ok := fieldLabels[f]; ok {
			labels = append(labels, l)
			continue
		}
		labels = append(labels, f)
	}
	return "Campi mancanti o non validi: " + strings.Join(labels, ", ")
}

func uploadMessage(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "I file caricati sono troppo grandi"
	}
	return "Dati del modulo non validi"
}

func errorFlash(msg string) *templates.Flash {
	return &templates.Flash{Type: "error", Message: msg}
}
