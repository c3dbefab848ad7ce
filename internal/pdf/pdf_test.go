package pdf

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Fornitura cucina", "Fornitura cucina"},
		{"newlines kept", "riga uno\r\nriga due", "riga uno\nriga due"},
		{"spaces collapse", "  molti    spazi  ", "molti spazi"},
		{"br tag", "uno<br/>due<br>tre", "uno\ndue\ntre"},
		{"paragraphs", "<p>primo</p><p>secondo</p>", "primo\n\nsecondo"},
		{"inline tags dropped", "<b>forno</b> a <i>gas</i>", "forno a gas"},
		{"entities", "Caff&egrave; &amp; t&egrave;", "Caffè & tè"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := plainText(tt.input); got != tt.want {
				t.Errorf("plainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFitBox(t *testing.T) {
	tests := []struct {
		name         string
		w, h         float64
		maxW, maxH   float64
		grow         bool
		wantW, wantH float64
	}{
		{"fits already", 100, 50, 200, 100, false, 100, 50},
		{"too wide", 400, 100, 200, 100, false, 200, 50},
		{"too tall", 100, 400, 200, 100, false, 25, 100},
		{"grow to box", 110, 55, 220, 220, true, 220, 110},
		{"empty image", 0, 10, 200, 100, false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitBox(tt.w, tt.h, tt.maxW, tt.maxH, tt.grow)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitBox() = (%v, %v), want (%v, %v)", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestClosingTops(t *testing.T) {
	tests := []struct {
		name    string
		top     float64
		height  float64
		onCover bool
		want    [4]float64
	}{
		{"short paragraph stays fixed", descTop, 60, true, [4]float64{620, 640, 655, 660}},
		{"long paragraph shifts", descTop, 200, true, [4]float64{630, 645, 660, 665}},
		{"continuation page follows text", descContinuationTop, 40, false, [4]float64{150, 165, 180, 185}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := closingTops(tt.top, tt.height, tt.onCover); got != tt.want {
				t.Errorf("closingTops() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPageRows(t *testing.T) {
	rows := make([]models.ProductRow, 7)

	pages := pageRows(rows, 3)
	if len(pages) != 3 {
		t.Fatalf("pageRows() returned %d pages, want 3", len(pages))
	}
	if len(pages[2]) != 1 {
		t.Errorf("last page has %d rows, want 1", len(pages[2]))
	}

	if got := len(pageRows(nil, 3)); got != 1 {
		t.Errorf("empty table has %d pages, want 1", got)
	}
}

func TestSingleFields(t *testing.T) {
	p := &models.SingleProduct{
		ProductCode:  "F-01",
		ProductName:  "Forno",
		Quantity:     "2",
		UnitPrice:    "1500",
		Discount:     "100",
		DiscountFlag: true,
		Volts:        "400",
	}

	var labels []string
	for _, f := range singleFields(p) {
		labels = append(labels, f.label)
	}
	want := "Codice,Tensione (V),Quantità,Prezzo unitario,Sconto,Totale"
	if got := strings.Join(labels, ","); got != want {
		t.Errorf("labels = %q, want %q", got, want)
	}

	fields := singleFields(p)
	if total := fields[len(fields)-1].value; total != "2.900,00 €" {
		t.Errorf("total = %q, want %q", total, "2.900,00 €")
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(&models.Record{OfferNumber: "2025-0007"}); got != "Offerta_2025-0007.pdf" {
		t.Errorf("FileName() = %q", got)
	}
}

func writeImage(t *testing.T, path string, encode func(*bytes.Buffer, image.Image) error) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil {
		t.Fatalf("encode image: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}
}

func sampleRecord(dir string) *models.Record {
	rows := make([]models.ProductRow, 7)
	for i := range rows {
		rows[i] = models.ProductRow{Name: "Pentola", Model: "P-20", Price: "35,50", Quantity: "4", Description: "Acciaio inox"}
	}
	return &models.Record{
		ID:               "abc",
		OfferNumber:      "2025-0001",
		Date:             "2025-03-01",
		Customer:         "Ristorante Da Mario",
		CustomerEmail:    "mario@example.com",
		Address:          "Via Roma 1, Sondrio",
		OfferDescription: "<p>Fornitura completa di attrezzature per la cucina.</p>Consegna inclusa, più installazione.",
		Tabs: []models.Tab{
			models.NewSingleTab(models.SingleProduct{
				ProductCode:      "F-01",
				ProductName:      "Forno combinato",
				Quantity:         "1",
				UnitPrice:        "10345",
				Description:      "Forno a convezione con vapore",
				PowerW:           "9000",
				ProductImagePath: "/static/uploads/forno.jpg",
			}),
			models.NewMultiTab(rows),
			models.NewSingleTab(models.SingleProduct{
				ProductName:      "Lavastoviglie",
				UnitPrice:        "2.400,00 €",
				ProductImagePath: "/static/uploads/lava.bmp",
			}),
		},
	}
}

func newTestRenderer(t *testing.T) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	uploads := filepath.Join(dir, "uploads")
	if err := os.MkdirAll(uploads, 0755); err != nil {
		t.Fatal(err)
	}

	writeImage(t, filepath.Join(dir, "logo.png"), func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) })
	writeImage(t, filepath.Join(uploads, "forno.jpg"), func(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) })
	writeImage(t, filepath.Join(uploads, "lava.bmp"), func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) })

	r := NewRenderer(Config{
		LogoPath:      filepath.Join(dir, "logo.png"),
		BrandLogoPath: filepath.Join(dir, "missing.png"),
		ImageResolver: func(stored string) string {
			return filepath.Join(uploads, filepath.Base(stored))
		},
	})
	return r, dir
}

func TestRender_Full(t *testing.T) {
	r, dir := newTestRenderer(t)
	rec := sampleRecord(dir)
	out := filepath.Join(dir, "out", FileName(rec))

	got, err := r.Render(rec, ModeFull, out)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != out {
		t.Errorf("Render() = %q, want %q", got, out)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header")
	}
}

func TestBuild_PageCounts(t *testing.T) {
	r, dir := newTestRenderer(t)
	rec := sampleRecord(dir)

	// cover + single + 3 table pages + single + summary
	doc, err := r.build(rec, ModeFull)
	if err != nil {
		t.Fatalf("build(full) error = %v", err)
	}
	if got := doc.PageCount(); got != 7 {
		t.Errorf("full page count = %d, want 7", got)
	}

	// cover + single + 3 table pages
	doc, err = r.build(rec, ModePreview)
	if err != nil {
		t.Fatalf("build(preview) error = %v", err)
	}
	if got := doc.PageCount(); got != 5 {
		t.Errorf("preview page count = %d, want 5", got)
	}
}

func TestBuild_EmptyRecord(t *testing.T) {
	r := NewRenderer(Config{})
	doc, err := r.build(&models.Record{}, ModeFull)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	if got := doc.PageCount(); got != 1 {
		t.Errorf("page count = %d, want 1", got)
	}
}

func TestBuild_LongDescriptionContinues(t *testing.T) {
	r := NewRenderer(Config{})
	lines := make([]string, 40)
	for i := range lines {
		lines[i] = "Riga della descrizione"
	}
	rec := &models.Record{OfferNumber: "2025-0002", OfferDescription: strings.Join(lines, "\n")}

	doc, err := r.build(rec, ModeFull)
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}
	// 13 lines on the cover, 27 on the next page
	if got := doc.PageCount(); got != 2 {
		t.Errorf("page count = %d, want 2", got)
	}
}
