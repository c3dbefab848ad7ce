package pdf

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/pricing"
)

const (
	productImageBox = 220.0
	fieldLabelWidth = 110.0
	fieldLeading    = 15.0
	tableLeading    = 12.0
)

type field struct {
	label string
	value string
}

type column struct {
	title string
	width float64
	align string
}

var productColumns = []column{
	{"#", 20, "C"},
	{"Prodotto", 110, "L"},
	{"Modello", 65, "L"},
	{"Descrizione", 130, "L"},
	{"Q.tà", 35, "R"},
	{"Prezzo €", 65, "R"},
	{"Totale €", 70, "R"},
}

// tabPage starts a new page with the quote reference and title and returns
// the top of the content area.
func (d *document) tabPage(title string) float64 {
	f := d.f
	f.AddPage()

	f.SetFont("Times", "", 10)
	d.text(marginX, 40, fmt.Sprintf("Offerta N: %s - %s", d.rec.OfferNumber, d.rec.Customer))
	f.SetLineWidth(0.5)
	f.Line(marginX, 48, d.width-marginX, 48)

	f.SetFont("Times", "B", 16)
	d.text(marginX, 80, title)
	return 100
}

func euro(d decimal.Decimal) string {
	return pricing.Format(d) + " €"
}

// singleFields lists the labeled values printed for a single product.
// Optional technical data is left out when empty.
func singleFields(p *models.SingleProduct) []field {
	fields := []field{{"Codice", p.ProductCode}}
	optional := []field{
		{"Descrizione", plainText(p.Description)},
		{"Potenza (W)", p.PowerW},
		{"Tensione (V)", p.Volts},
		{"Dimensioni", p.Size},
		{"Posizione", p.Posizione},
	}
	for _, fl := range optional {
		if strings.TrimSpace(fl.value) != "" {
			fields = append(fields, fl)
		}
	}

	qty := p.Quantity
	if strings.TrimSpace(qty) == "" {
		qty = "1"
	}
	fields = append(fields,
		field{"Quantità", qty},
		field{"Prezzo unitario", pricing.FormatPrice(p.UnitPrice) + " €"},
	)
	if p.DiscountFlag {
		fields = append(fields, field{"Sconto", pricing.FormatPrice(p.Discount) + " €"})
	}
	return append(fields, field{"Totale", euro(pricing.SingleTotal(p))})
}

func (d *document) singleProduct(i int, p *models.SingleProduct) {
	title := p.ProductName
	if strings.TrimSpace(title) == "" {
		title = fmt.Sprintf("Prodotto %d", i+1)
	}
	top := d.tabPage(title)

	textWidth := d.width - 2*marginX
	if path := d.renderer.resolveImage(p.ProductImagePath); path != "" {
		img, err := d.image(path)
		if err != nil {
			d.renderer.logger.Warn("product image skipped", "offer_id", d.rec.ID, "path", path, "error", err)
		} else {
			w, h := fitBox(img.w, img.h, productImageBox, productImageBox, true)
			d.placeImage(img, d.width-marginX-w, top, w, h)
			textWidth -= productImageBox + 20
		}
	}

	for _, fl := range singleFields(p) {
		top = d.field(top, textWidth, fl)
	}
}

// field prints a bold label and its wrapped value and returns the next top.
func (d *document) field(top, width float64, fl field) float64 {
	d.f.SetFont("Times", "B", 11)
	d.text(marginX, top+12, fl.label+":")

	d.f.SetFont("Times", "", 11)
	lines := d.wrap(fl.value, width-fieldLabelWidth)
	for k, l := range lines {
		d.text(marginX+fieldLabelWidth, top+12+float64(k)*fieldLeading, l)
	}
	return top + float64(max(len(lines), 1))*fieldLeading + 4
}

// pageRows splits rows into pages of per rows. An empty table still has one page.
func pageRows(rows []models.ProductRow, per int) [][]models.ProductRow {
	if per <= 0 {
		per = models.DefaultItemsPerPage
	}
	if len(rows) == 0 {
		return [][]models.ProductRow{nil}
	}
	var pages [][]models.ProductRow
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		pages = append(pages, rows[start:end])
	}
	return pages
}

func (d *document) multiProduct(i int, m *models.MultiProduct) {
	pages := pageRows(m.Products, m.PerPage())
	n := 0
	for p, rows := range pages {
		title := fmt.Sprintf("Elenco prodotti %d", i+1)
		if len(pages) > 1 {
			title += fmt.Sprintf(" (pagina %d di %d)", p+1, len(pages))
		}
		top := d.tableHeader(d.tabPage(title))

		if len(m.Products) == 0 {
			d.f.SetFont("Times", "I", 11)
			d.text(marginX, top+16, "Nessun prodotto inserito.")
			return
		}
		for _, row := range rows {
			n++
			top = d.tableRow(top, n, row)
		}
		if p == len(pages)-1 {
			d.f.SetFont("Times", "B", 11)
			d.rightAligned(d.width-marginX, top+20, "Totale: "+euro(pricing.TabTotal(models.Tab{Multi: m})))
		}
	}
}

func (d *document) tableHeader(top float64) float64 {
	f := d.f
	f.SetFont("Times", "B", 10)
	f.SetFillColor(230, 230, 230)
	f.SetXY(marginX, top)
	for _, c := range productColumns {
		f.CellFormat(c.width, 18, d.tr(c.title), "1", 0, c.align, true, 0, "")
	}
	return top + 18
}

func (d *document) tableRow(top float64, n int, row models.ProductRow) float64 {
	f := d.f
	f.SetFont("Times", "", 10)

	qty := row.Quantity
	if strings.TrimSpace(qty) == "" {
		qty = "1"
	}
	values := []string{
		fmt.Sprint(n),
		row.Name,
		row.Model,
		plainText(row.Description),
		qty,
		pricing.FormatPrice(row.Price),
		pricing.Format(pricing.RowTotal(row)),
	}

	cells := make([][]string, len(values))
	height := 1
	for k, v := range values {
		cells[k] = d.wrap(v, productColumns[k].width-6)
		height = max(height, len(cells[k]))
	}
	rowHeight := float64(height)*tableLeading + 6

	x := marginX
	for k, c := range productColumns {
		f.Rect(x, top, c.width, rowHeight, "D")
		for j, l := range cells[k] {
			baseline := top + 3 + 9 + float64(j)*tableLeading
			switch c.align {
			case "R":
				d.rightAligned(x+c.width-3, baseline, l)
			case "C":
				d.text(x+(c.width-d.measure(l))/2, baseline, l)
			default:
				d.text(x+3, baseline, l)
			}
		}
		x += c.width
	}
	return top + rowHeight
}

// summary closes a full document with the total of every tab.
func (d *document) summary() {
	top := d.tabPage("RIEPILOGO OFFERTA")
	right := d.width - marginX

	d.f.SetFont("Times", "", 12)
	for i, t := range d.rec.Tabs {
		d.text(marginX, top+14, tabLabel(i, t))
		d.rightAligned(right, top+14, euro(pricing.TabTotal(t)))
		top += 20
	}

	d.f.SetLineWidth(0.5)
	d.f.Line(marginX, top+6, right, top+6)
	d.f.SetFont("Times", "B", 13)
	d.text(marginX, top+26, "Totale offerta")
	d.rightAligned(right, top+26, euro(pricing.RecordTotal(d.rec)))
}

func tabLabel(i int, t models.Tab) string {
	switch {
	case t.Single != nil && strings.TrimSpace(t.Single.ProductName) != "":
		return fmt.Sprintf("%d. %s", i+1, t.Single.ProductName)
	case t.Multi != nil:
		return fmt.Sprintf("%d. Elenco prodotti (%d articoli)", i+1, len(t.Multi.Products))
	}
	return fmt.Sprintf("%d. Prodotto", i+1)
}
