// Package quotes implements the quote operations used by the web handlers
// and the CLI: create, edit, delete, status changes, previews and delivery.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/LucaVano/app-oferte-10-05/internal/email"
	"github.com/LucaVano/app-oferte-10-05/internal/formdecode"
	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/pdf"
	"github.com/LucaVano/app-oferte-10-05/internal/pricing"
	"github.com/LucaVano/app-oferte-10-05/internal/store"
)

var (
	// ErrInvalidStatus is returned for a status other than in_attesa or accettata.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidRecord wraps header validation failures.
	ErrInvalidRecord = errors.New("invalid offerta")
	// ErrMailerDisabled is returned by Send when SMTP is not configured.
	ErrMailerDisabled = errors.New("mailer not configured")
	// ErrNoRecipient is returned by Send when the quote has no customer e-mail.
	ErrNoRecipient = errors.New("offerta has no customer email")
	// ErrOfferNumberTaken is matched by the ValidationError returned when
	// another quote already uses the customer and offer number.
	ErrOfferNumberTaken = errors.New("offer number already used")
)

// Decoder rebuilds tabs from a submitted form.
type Decoder interface {
	Decode(f formdecode.Form) ([]models.Tab, error)
}

// Renderer writes quote documents.
type Renderer interface {
	Render(rec *models.Record, mode pdf.Mode, outPath string) (string, error)
}

// Archiver keeps an off-site copy of rendered documents.
type Archiver interface {
	Store(ctx context.Context, customer, offerNumber, localPath string) error
	Remove(ctx context.Context, customer, offerNumber, fileName string) error
}

// Mailer delivers documents to customers.
type Mailer interface {
	IsConfigured() bool
	SendQuote(q email.Quote) error
}

// Service coordinates the record store, the counter, the form decoder and
// the renderer.
type Service struct {
	store    *store.Store
	counter  *store.Counter
	decoder  Decoder
	renderer Renderer
	archive  Archiver
	mailer   Mailer
	logger   *slog.Logger

	now   func() time.Time
	newID func() string
}

// Option configures optional collaborators.
type Option func(*Service)

// WithArchiver uploads every rendered document to a.
func WithArchiver(a Archiver) Option {
	return func(s *Service) {
		s.archive = a
	}
}

// WithMailer enables Send.
func WithMailer(m Mailer) Option {
	return func(s *Service) {
		s.mailer = m
	}
}

// NewService creates a quote service.
func NewService(st *store.Store, counter *store.Counter, decoder Decoder, renderer Renderer, opts ...Option) *Service {
	s := &Service{
		store:    st,
		counter:  counter,
		decoder:  decoder,
		renderer: renderer,
		logger:   slog.Default().With("component", "quotes"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current date in the format stored on records.
func (s *Service) Today() string {
	return s.now().Format(dateLayout)
}

// NextOfferNumber consumes and returns the next offer number.
func (s *Service) NextOfferNumber() (string, error) {
	return s.counter.Next()
}

// PeekOfferNumber returns the next offer number without consuming it.
func (s *Service) PeekOfferNumber() (string, error) {
	return s.counter.Peek()
}

// Create stores a new quote from a submitted form, indexes it and renders
// its document. When rendering fails the record is kept and the error is
// returned.
func (s *Service) Create(ctx context.Context, f formdecode.Form) (*models.Record, error) {
	h := headerFromForm(f)
	if err := validateHeader(h); err != nil {
		return nil, err
	}

	tabs, err := s.decoder.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode form: %w", err)
	}

	rec := h.record()
	rec.ID = s.newID()
	rec.Tabs = tabs
	rec.Status = models.StatusPending

	if err := s.claimDir(rec); err != nil {
		return nil, err
	}
	if err := s.save(rec); err != nil {
		return nil, err
	}
	s.logger.Info("offerta created", "offer_id", rec.ID, "offer_number", rec.OfferNumber, "tabs", len(tabs))

	if err := s.renderDocument(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Get loads a quote by id.
func (s *Service) Get(id string) (*models.Record, error) {
	return s.store.Load(id)
}

// Update replaces the header and tabs of a quote. The id, status and
// document name are kept. When the customer or number changes the offer
// directory is moved before the document is rendered again.
func (s *Service) Update(ctx context.Context, id string, f formdecode.Form) (*models.Record, error) {
	old, err := s.store.Load(id)
	if err != nil {
		return nil, err
	}

	h := headerFromForm(f)
	if err := validateHeader(h); err != nil {
		return nil, err
	}

	tabs, err := s.decoder.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode form: %w", err)
	}

	rec := h.record()
	rec.ID = old.ID
	rec.Tabs = tabs
	rec.Status = old.Status
	rec.PDFPath = old.PDFPath

	if err := s.claimDir(rec); err != nil {
		return nil, err
	}
	if err := s.store.Save(rec); err != nil {
		return nil, err
	}
	if err := s.store.Relocate(old.Customer, old.OfferNumber, rec.Customer, rec.OfferNumber); err != nil {
		// the old directory is intact and still indexed
		if derr := s.store.Discard(rec.Customer, rec.OfferNumber); derr != nil {
			s.logger.Warn("failed to discard moved record", "offer_id", id, "error", derr)
		}
		return nil, fmt.Errorf("failed to move offerta files: %w", err)
	}
	if err := s.store.Index().Upsert(models.NewIndexEntry(rec)); err != nil {
		return nil, err
	}

	moved := s.store.RecordDir(old.Customer, old.OfferNumber) != s.store.RecordDir(rec.Customer, rec.OfferNumber)
	if moved {
		s.logger.Info("offerta moved", "offer_id", id,
			"from", s.store.RecordDir(old.Customer, old.OfferNumber),
			"to", s.store.RecordDir(rec.Customer, rec.OfferNumber))
		s.dropStaleDocument(ctx, old, rec)
	}

	if err := s.renderDocument(ctx, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// dropStaleDocument removes the copy of the old document carried over by a
// relocation when the new offer number gives the document a new name.
func (s *Service) dropStaleDocument(ctx context.Context, old, rec *models.Record) {
	oldName := pdf.FileName(old)
	if oldName != pdf.FileName(rec) {
		stale := filepath.Join(s.store.RecordDir(rec.Customer, rec.OfferNumber), oldName)
		if err := os.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove stale document", "path", stale, "error", err)
		}
	}
	s.unarchive(ctx, old.Customer, old.OfferNumber, oldName)
}

// Delete removes the quote files, its index entry and its archived copy.
func (s *Service) Delete(ctx context.Context, id string) error {
	entry, err := s.store.Index().Find(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.logger.Info("offerta deleted", "offer_id", id, "offer_number", entry.OfferNumber)

	s.unarchive(ctx, entry.Customer, entry.OfferNumber, pdf.FileName(&models.Record{OfferNumber: entry.OfferNumber}))
	return nil
}

// SetStatus changes the acceptance status of a quote.
func (s *Service) SetStatus(id string, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	rec, err := s.store.Load(id)
	if err != nil {
		return err
	}

	previous := rec.Status
	rec.Status = status
	if err := s.save(rec); err != nil {
		return err
	}
	s.logger.Info("offerta status changed", "offer_id", id, "from", previous, "to", status)
	return nil
}

// Resave rewrites the record file and refreshes its index entry. A missing
// status is filled with the default.
func (s *Service) Resave(id string) error {
	rec, err := s.store.Load(id)
	if err != nil {
		return err
	}
	rec.Normalize()
	return s.save(rec)
}

// List returns every quote, newest offer number first.
func (s *Service) List() ([]*models.Record, error) {
	return s.store.ListAll()
}

// ListByStatus returns the quotes with the given status.
func (s *Service) ListByStatus(status models.Status) ([]*models.Record, error) {
	all, err := s.store.ListAll()
	if err != nil {
		return nil, err
	}
	return FilterByStatus(all, status), nil
}

// FilterByStatus keeps the records whose status is status.
func FilterByStatus(records []*models.Record, status models.Status) []*models.Record {
	out := []*models.Record{}
	for _, r := range records {
		if models.NormalizeStatus(r.Status) == status {
			out = append(out, r)
		}
	}
	return out
}

// Reindex rebuilds the index from the record files.
func (s *Service) Reindex() (int, error) {
	n, err := s.store.RebuildIndex()
	if err != nil {
		return 0, fmt.Errorf("failed to rebuild index: %w", err)
	}
	s.logger.Info("index rebuilt", "entries", n)
	return n, nil
}

// PDFPath returns the stored document of a quote, or store.ErrNotFound when
// it has none.
func (s *Service) PDFPath(id string) (string, error) {
	rec, err := s.store.Load(id)
	if err != nil {
		return "", err
	}
	path := s.store.DocumentPath(rec)
	if path == "" {
		return "", store.ErrNotFound
	}
	if _, err := os.Stat(path); err != nil {
		s.logger.Warn("document missing", "offer_id", id, "path", path)
		return "", store.ErrNotFound
	}
	return path, nil
}

// Regenerate renders the stored document of a quote again.
func (s *Service) Regenerate(ctx context.Context, id string) (string, error) {
	rec, err := s.store.Load(id)
	if err != nil {
		return "", err
	}
	if err := s.renderDocument(ctx, rec); err != nil {
		return "", err
	}
	return s.store.DocumentPath(rec), nil
}

// RenderTo renders a quote to an arbitrary path without touching the record.
func (s *Service) RenderTo(id string, mode pdf.Mode, outPath string) (string, error) {
	rec, err := s.store.Load(id)
	if err != nil {
		return "", err
	}
	return s.renderer.Render(rec, mode, outPath)
}

// Send mails the quote document to the customer, rendering it first when
// it is missing.
func (s *Service) Send(ctx context.Context, id string) error {
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return ErrMailerDisabled
	}

	rec, err := s.store.Load(id)
	if err != nil {
		return err
	}
	if rec.CustomerEmail == "" {
		return ErrNoRecipient
	}

	path, err := s.PDFPath(id)
	if errors.Is(err, store.ErrNotFound) {
		path, err = s.Regenerate(ctx, id)
	}
	if err != nil {
		return err
	}

	err = s.mailer.SendQuote(email.Quote{
		To:          rec.CustomerEmail,
		Customer:    rec.Customer,
		OfferNumber: rec.OfferNumber,
		Date:        rec.Date,
		Total:       pricing.Format(pricing.RecordTotal(rec)),
		PDFPath:     path,
	})
	if err != nil {
		return err
	}
	s.logger.Info("offerta sent", "offer_id", id, "to", rec.CustomerEmail)
	return nil
}

// claimDir fails when the offer directory of rec holds another quote.
func (s *Service) claimDir(rec *models.Record) error {
	owner, err := s.store.Owner(rec.Customer, rec.OfferNumber)
	if err != nil {
		return fmt.Errorf("failed to check offer directory: %w", err)
	}
	if owner != "" && owner != rec.ID {
		return offerNumberTaken(rec.Customer, rec.OfferNumber)
	}
	return nil
}

// save writes the record and its index entry.
func (s *Service) save(rec *models.Record) error {
	if err := s.store.Save(rec); err != nil {
		return err
	}
	return s.store.Index().Upsert(models.NewIndexEntry(rec))
}

// renderDocument renders the full document into the offer directory,
// records its name and archives it.
func (s *Service) renderDocument(ctx context.Context, rec *models.Record) error {
	out := filepath.Join(s.store.RecordDir(rec.Customer, rec.OfferNumber), pdf.FileName(rec))
	path, err := s.renderer.Render(rec, pdf.ModeFull, out)
	if err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}

	rec.PDFPath = filepath.Base(path)
	if err := s.store.Save(rec); err != nil {
		return err
	}

	if s.archive != nil {
		if err := s.archive.Store(ctx, rec.Customer, rec.OfferNumber, path); err != nil {
			s.logger.Warn("failed to archive document", "offer_id", rec.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) unarchive(ctx context.Context, customer, offerNumber, fileName string) {
	if s.archive == nil {
		return
	}
	if err := s.archive.Remove(ctx, customer, offerNumber, fileName); err != nil {
		s.logger.Warn("failed to remove archived document", "offer_number", offerNumber, "error", err)
	}
}
