// Package pdf renders quote documents: a cover page with the customer block
// and the offer description, followed by one or more pages per tab.
package pdf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phpdave11/gofpdf"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
)

// Mode selects how much of a quote is rendered.
type Mode int

const (
	// ModeFull renders every tab and the closing summary.
	ModeFull Mode = iota
	// ModePreview renders the cover and at most maxPreviewTabs tabs.
	ModePreview
)

const maxPreviewTabs = 2

// Config locates the images used by the renderer.
type Config struct {
	LogoPath      string
	BrandLogoPath string
	// ImageResolver maps a stored product image path such as
	// /static/uploads/x.png to a file on disk. Nil uses the path unchanged.
	ImageResolver func(stored string) string
}

// Renderer draws quote documents with gofpdf.
type Renderer struct {
	config Config
	logger *slog.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(cfg Config) *Renderer {
	return &Renderer{
		config: cfg,
		logger: slog.Default().With("component", "pdf"),
	}
}

// FileName is the document name stored next to a record.
func FileName(r *models.Record) string {
	return "Offerta_" + r.OfferNumber + ".pdf"
}

// Render writes the document for r to outPath, creating its directory, and
// returns outPath.
func (r *Renderer) Render(rec *models.Record, mode Mode, outPath string) (string, error) {
	doc, err := r.build(rec, mode)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := doc.OutputFileAndClose(outPath); err != nil {
		return "", fmt.Errorf("failed to write pdf: %w", err)
	}

	r.logger.Info("pdf rendered", "offer_id", rec.ID, "offer_number", rec.OfferNumber, "path", outPath, "pages", doc.PageCount())
	return outPath, nil
}

func (r *Renderer) build(rec *models.Record, mode Mode) (*gofpdf.Fpdf, error) {
	f := gofpdf.New("P", "pt", "A4", "")
	f.SetAutoPageBreak(false, 0)
	f.SetMargins(marginX, 40, marginX)
	f.SetTitle("Offerta "+rec.OfferNumber, true)
	f.SetCreator("app-offerte", true)

	d := &document{
		f:        f,
		tr:       f.UnicodeTranslatorFromDescriptor(""),
		renderer: r,
		rec:      rec,
	}
	d.width, d.height = f.GetPageSize()
	f.SetFooterFunc(d.footer)

	d.cover()

	tabs := rec.Tabs
	if mode == ModePreview && len(tabs) > maxPreviewTabs {
		tabs = tabs[:maxPreviewTabs]
	}
	for i, t := range tabs {
		switch t.Type() {
		case models.TabSingleProduct:
			d.singleProduct(i, t.Single)
		case models.TabMultiProduct:
			d.multiProduct(i, t.Multi)
		}
	}
	if mode == ModeFull && len(tabs) > 0 {
		d.summary()
	}

	if err := f.Error(); err != nil {
		return nil, fmt.Errorf("failed to draw pdf: %w", err)
	}
	return f, nil
}

// resolveImage maps a stored product image reference to a local file.
func (r *Renderer) resolveImage(stored string) string {
	if stored == "" {
		return ""
	}
	if r.config.ImageResolver != nil {
		return r.config.ImageResolver(stored)
	}
	return stored
}
