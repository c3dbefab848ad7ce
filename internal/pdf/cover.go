package pdf

import (
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
)

// Cover page geometry in points from the top edge of an A4 page.
const (
	marginX = 50.0

	descTop       = 410.0
	descLeading   = 20.0
	descMaxHeight = 200.0
	// descCoverLines keeps the shifted closing text above the footer.
	descCoverLines        = 13
	descContinuationTop   = 90.0
	descContinuationLines = 30

	closingShiftAt = 170.0
	closingFixed   = 620.0
)

const (
	objectHeading = "OGGETTO OFFERTA:"
	objectLine1   = "Abbiamo il piacere di presentare la ns. Offerta per la fornitura "
	objectLine2   = "di attrezzature per cucina."
	closingLine1  = "Per ulteriori dettagli e specifiche consultare l'interno dell'offerta."
	closingLine2  = "Augurando buon lavoro, porgiamo cordiali saluti."
	disclaimer    = "I modelli e le specifiche tecniche dei prodotti indicati possono subire variazioni senza preavviso."
)

var (
	footerLeft = []struct {
		top  float64
		text string
	}{
		{740, "Valtservice"},
		{760, "Part. Iva:.00872020144"},
		{770, "Iscrizione R.E.A.SO - 65776"},
	}
	footerRight = []string{
		"Filiale di Sondrio:",
		"Via  Valeriana, 103/A",
		"23019 TRAONA (SO)",
		"Tel. (+39) 0342590138",
		"info@valtservice.com",
	}
)

// document carries the drawing state of one render.
type document struct {
	f        *gofpdf.Fpdf
	tr       func(string) string
	renderer *Renderer
	rec      *models.Record
	images   map[string]registeredImage

	width, height float64
}

func (d *document) text(x, top float64, s string) {
	d.f.Text(x, top, d.tr(s))
}

func (d *document) centered(top float64, s string) {
	d.f.Text((d.width-d.measure(s))/2, top, d.tr(s))
}

func (d *document) rightAligned(right, top float64, s string) {
	d.f.Text(right-d.measure(s), top, d.tr(s))
}

func (d *document) measure(s string) float64 {
	return d.f.GetStringWidth(d.tr(s))
}

func (d *document) dashedLine(top float64) {
	d.f.SetDashPattern([]float64{3, 2}, 0)
	d.f.Line(marginX, top, d.width-marginX, top)
	d.f.SetDashPattern([]float64{}, 0)
}

// wrap breaks s into lines no wider than width using the current font.
// Every newline in s starts a new line; a word longer than width stays whole.
func (d *document) wrap(s string, width float64) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if d.measure(candidate) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

func (d *document) cover() {
	f := d.f
	rec := d.rec
	f.AddPage()

	d.logo(d.renderer.config.LogoPath, 50, 20, 200, 100)
	d.logo(d.renderer.config.BrandLogoPath, 460, 20, 80, 50)

	f.SetLineWidth(1)
	f.Line(marginX, 105, d.width-marginX, 105)

	f.SetFont("Times", "", 12)
	d.text(marginX, 140, fmt.Sprintf("Offerta N: %s - Data: %s", rec.OfferNumber, rec.Date))

	f.SetFont("Times", "", 14)
	d.centered(200, "Spett.le")
	f.SetFont("Times", "B", 14)
	d.centered(220, rec.Customer)
	f.SetFont("Times", "", 14)
	d.centered(240, rec.Address)
	d.centered(260, rec.CustomerEmail)

	f.SetLineWidth(0.5)
	d.dashedLine(320)
	d.dashedLine(325)

	f.SetFont("Times", "B", 14)
	d.text(marginX, 360, objectHeading)
	x := marginX + d.measure(objectHeading+" ")
	f.SetFont("Times", "", 12)
	d.text(x, 360, objectLine1)
	d.text(x, 375, objectLine2)

	f.SetFont("Times", "B", 14)
	d.text(marginX, 400, "DESCRIZIONE OFFERTA:")

	d.description()
}

// description draws the offer text below the cover headings. Text that does
// not fit on the cover continues on the following pages.
func (d *document) description() {
	f := d.f
	text := plainText(d.rec.OfferDescription)
	width := d.width - 2*marginX

	size := 14.0
	f.SetFont("Times", "", size)
	lines := d.wrap(text, width)
	if descriptionHeight(len(lines)) >= descMaxHeight {
		size = 12
		f.SetFont("Times", "", size)
		lines = d.wrap(text, width)
	}

	top := descTop
	capacity := descCoverLines
	onCover := true
	for {
		n := min(len(lines), capacity)
		for i := 0; i < n; i++ {
			d.text(marginX, top+size+float64(i)*descLeading, lines[i])
		}
		lines = lines[n:]
		if len(lines) == 0 {
			d.closing(closingTops(top, descriptionHeight(n), onCover))
			return
		}

		f.AddPage()
		f.SetFont("Times", "B", 14)
		d.text(marginX, descContinuationTop-20, "DESCRIZIONE OFFERTA (segue):")
		f.SetFont("Times", "", size)
		top = descContinuationTop
		capacity = descContinuationLines
		onCover = false
	}
}

func descriptionHeight(lines int) float64 {
	return float64(lines) * descLeading
}

// closingTops returns the baselines of the two closing lines and the two
// dashed rules. A short paragraph on the cover leaves the closing text at its
// fixed place, otherwise it follows the paragraph.
func closingTops(paraTop, paraHeight float64, onCover bool) [4]float64 {
	if onCover && paraHeight < closingShiftAt {
		return [4]float64{closingFixed, closingFixed + 20, closingFixed + 35, closingFixed + 40}
	}
	base := paraTop + paraHeight
	return [4]float64{base + 20, base + 35, base + 50, base + 55}
}

func (d *document) closing(tops [4]float64) {
	d.f.SetFont("Times", "", 12)
	d.text(marginX, tops[0], closingLine1)
	d.text(marginX, tops[1], closingLine2)
	d.f.SetLineWidth(0.5)
	d.dashedLine(tops[2])
	d.dashedLine(tops[3])
}

// footer runs on every page.
func (d *document) footer() {
	f := d.f
	f.SetFont("Times", "", 9)
	for _, l := range footerLeft {
		d.text(marginX, l.top, l.text)
	}
	for i, l := range footerRight {
		d.text(450, 740+float64(i)*10, l)
	}

	f.SetFont("Times", "", 7)
	d.text(marginX, 800, disclaimer)

	f.SetFont("Times", "", 9)
	d.centered(820, fmt.Sprintf("Pagina %d", f.PageNo()))
}
