// Package formdecode rebuilds the ordered tab list of a quote from the flat
// field names posted by the quote form.
//
// The form is built by browser code that adds and removes sections, so the
// tab index may appear as a prefix, infix or suffix of a field name. Decoding
// runs in two passes: scan collects the tab and row indices present in the
// field names, then resolve reads every logical field through an ordered list
// of candidate keys.
package formdecode

import (
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/uploads"
)

// Form is a submission reduced to the first value of each field.
type Form struct {
	Values map[string]string
	Files  map[string]*multipart.FileHeader
}

// FromRequest flattens a parsed request form. Call ParseMultipartForm or
// ParseForm first.
func FromRequest(r *http.Request) Form {
	f := Form{
		Values: make(map[string]string),
		Files:  make(map[string]*multipart.FileHeader),
	}
	for k, v := range r.PostForm {
		if len(v) > 0 {
			f.Values[k] = v[0]
		}
	}
	if r.MultipartForm != nil {
		for k, v := range r.MultipartForm.File {
			if len(v) > 0 {
				f.Files[k] = v[0]
			}
		}
	}
	return f
}

// Get returns the value of key or "" when absent.
func (f Form) Get(key string) string {
	return f.Values[key]
}

// Has reports whether key was submitted, even with an empty value.
func (f Form) Has(key string) bool {
	_, ok := f.Values[key]
	return ok
}

// ImageSaver persists an uploaded product image and returns its served path.
type ImageSaver interface {
	SaveImage(fh *multipart.FileHeader) (string, error)
}

var (
	tabIndexPrefixed = regexp.MustCompile(`tab_(\d+)type_`)
	tabIndexSuffixed = regexp.MustCompile(`tab_type_(\d+)`)
	productRowIndex  = regexp.MustCompile(`product_(\d+)(name|model|price|quantity|description)__(\d+)`)
)

// Decoder turns a Form into tabs.
type Decoder struct {
	images ImageSaver
	logger *slog.Logger
}

// New creates a decoder that stores uploaded images with images.
func New(images ImageSaver) *Decoder {
	return &Decoder{
		images: images,
		logger: slog.Default().With("component", "formdecode"),
	}
}

// layout is what the scan pass found: tab indices and, per tab, the row
// indices of multi-product rows.
type layout struct {
	tabs map[int]bool
	rows map[int]map[int]bool
}

// Decode returns the tabs in ascending tab-index order. It only fails when
// an uploaded image cannot be written.
func (d *Decoder) Decode(f Form) ([]models.Tab, error) {
	l := d.scan(f)

	tabs, err := d.resolve(f, l)
	if err != nil {
		return nil, err
	}

	if len(tabs) == 0 {
		d.logger.Warn("no tabs found with the standard field names, trying recovery")
		tabs = d.recover(f)
	}

	d.logger.Info("form decoded", "tabs", len(tabs))
	return tabs, nil
}

func (d *Decoder) scan(f Form) layout {
	l := layout{
		tabs: make(map[int]bool),
		rows: make(map[int]map[int]bool),
	}

	for _, key := range sortedKeys(f.Values) {
		if m := tabIndexPrefixed.FindStringSubmatch(key); m != nil {
			d.addTab(l, key, m[1])
			continue
		}
		if m := tabIndexSuffixed.FindStringSubmatch(key); m != nil {
			d.addTab(l, key, m[1])
			continue
		}
		if m := productRowIndex.FindStringSubmatch(key); m != nil {
			tab, err1 := strconv.Atoi(m[1])
			row, err2 := strconv.Atoi(m[3])
			if err1 != nil || err2 != nil {
				d.logger.Warn("ignoring unparseable row index", "key", key)
				continue
			}
			if l.rows[tab] == nil {
				l.rows[tab] = make(map[int]bool)
			}
			l.rows[tab][row] = true
		}
	}

	if len(l.tabs) == 0 && f.Has(bareTabTypeKey) {
		d.logger.Info("no indexed tab found, using bare tab_type_ as tab 0")
		l.tabs[0] = true
	}
	return l
}

func (d *Decoder) addTab(l layout, key, digits string) {
	idx, err := strconv.Atoi(digits)
	if err != nil {
		d.logger.Warn("ignoring unparseable tab index", "key", key, "error", err)
		return
	}
	l.tabs[idx] = true
}

func (d *Decoder) resolve(f Form, l layout) ([]models.Tab, error) {
	tabs := []models.Tab{}

	for _, idx := range sortedInts(l.tabs) {
		tabType := d.tabType(f, idx)
		if tabType == "" {
			d.logger.Info("no type for tab, skipping", "tab", idx)
			continue
		}

		switch models.TabType(tabType) {
		case models.TabSingleProduct:
			tab, ok, err := d.singleProduct(f, idx)
			if err != nil {
				return nil, err
			}
			if ok {
				tabs = append(tabs, tab)
			}
		case models.TabMultiProduct:
			tabs = append(tabs, d.multiProduct(f, idx, l.rows[idx]))
		default:
			d.logger.Warn("skipping tab with unknown type", "tab", idx, "type", tabType)
		}
	}
	return tabs, nil
}

func (d *Decoder) tabType(f Form, idx int) string {
	if v, ok := lookup(f.Values, tabTypeKeys, idx, 0); ok {
		return v
	}
	if idx == 0 {
		return f.Get(bareTabTypeKey)
	}
	return ""
}

func (d *Decoder) singleProduct(f Form, idx int) (models.Tab, bool, error) {
	v := f.Values
	p := models.SingleProduct{
		ProductName:      singleName.resolve(v, idx, 0),
		ProductCode:      singleCode.resolve(v, idx, 0),
		UnitPrice:        singleUnitPrice.resolve(v, idx, 0),
		Quantity:         singleQuantity.resolve(v, idx, 0),
		Description:      singleDescription.resolve(v, idx, 0),
		Discount:         singleDiscount.resolve(v, idx, 0),
		PowerW:           singlePowerW.resolve(v, idx, 0),
		Volts:            singleVolts.resolve(v, idx, 0),
		Size:             singleSize.resolve(v, idx, 0),
		Posizione:        singlePosizione.resolve(v, idx, 0),
		ProductImagePath: singleExisting.resolve(v, idx, 0),
	}
	for _, tmpl := range discountFlagKeys {
		if v[expand(tmpl, idx, 0)] == "on" {
			p.DiscountFlag = true
			break
		}
	}

	if p.ProductName == "" {
		d.logger.Warn("skipping single product without a name", "tab", idx)
		return models.Tab{}, false, nil
	}

	if fh := d.imageFile(f, idx); fh != nil {
		if uploads.Allowed(fh.Filename) {
			served, err := d.images.SaveImage(fh)
			if err != nil {
				return models.Tab{}, false, fmt.Errorf("failed to save image for tab %d: %w", idx, err)
			}
			p.ProductImagePath = served
			d.logger.Info("saved product image", "tab", idx, "path", served)
		} else {
			d.logger.Warn("ignoring image with unsupported extension", "tab", idx, "filename", fh.Filename)
		}
	}

	return models.NewSingleTab(p), true, nil
}

// imageFile returns the first candidate upload that carries a filename.
func (d *Decoder) imageFile(f Form, idx int) *multipart.FileHeader {
	for _, tmpl := range imageFileKeys {
		if fh := f.Files[expand(tmpl, idx, 0)]; fh != nil && fh.Filename != "" {
			return fh
		}
	}
	return nil
}

func (d *Decoder) multiProduct(f Form, idx int, found map[int]bool) models.Tab {
	rowSet := make(map[int]bool, len(defaultRows)+len(found))
	for _, r := range defaultRows {
		rowSet[r] = true
	}
	for r := range found {
		rowSet[r] = true
	}

	v := f.Values
	rows := []models.ProductRow{}
	for _, r := range sortedInts(rowSet) {
		name := strings.TrimSpace(rowName.resolve(v, idx, r))
		if name == "" {
			continue
		}
		rows = append(rows, models.ProductRow{
			Name:        name,
			Model:       strings.TrimSpace(rowModel.resolve(v, idx, r)),
			Price:       rowPrice.resolve(v, idx, r),
			Quantity:    rowQuantity.resolve(v, idx, r),
			Description: strings.TrimSpace(rowDescription.resolve(v, idx, r)),
		})
	}

	d.logger.Info("multi product tab", "tab", idx, "rows", len(rows))
	return models.NewMultiTab(rows)
}

// recover is the loose last pass for forms whose field names match none of
// the known conventions. It groups product_*name_* fields by the text around
// "name_" and emits a single product for each group that also has a code.
func (d *Decoder) recover(f Form) []models.Tab {
	keys := sortedKeys(f.Values)

	var groups []string
	names := make(map[string]string)
	for _, key := range keys {
		if !strings.HasPrefix(key, "product_") {
			continue
		}

		var group string
		switch {
		case strings.Contains(key, "_name_"):
			group = strings.SplitN(key, "_name_", 3)[1]
		case strings.Contains(key, "name_"):
			parts := strings.Split(key, "name_")
			if len(parts) != 2 {
				continue
			}
			group = strings.ReplaceAll(parts[0], "product_", "")
		default:
			continue
		}

		if _, seen := names[group]; !seen {
			groups = append(groups, group)
		}
		names[group] = f.Values[key]
	}

	tabs := []models.Tab{}
	for _, group := range groups {
		name := names[group]
		if strings.TrimSpace(name) == "" {
			continue
		}

		prefix := "product_" + group
		var code, price string
		hasCode := false
		for _, key := range keys {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			field := strings.ReplaceAll(key, prefix, "")
			switch {
			case strings.HasPrefix(field, "_code_"):
				code, hasCode = f.Values[key], true
			case strings.HasPrefix(field, "_price_"):
				price = f.Values[key]
			}
		}
		if !hasCode {
			continue
		}
		if price == "" {
			price = "0"
		}

		d.logger.Info("recovered single product", "group", group, "name", name)
		tabs = append(tabs, models.NewSingleTab(models.SingleProduct{
			ProductCode: code,
			ProductName: name,
			Quantity:    "1",
			UnitPrice:   price,
			Discount:    "0",
		}))
	}
	return tabs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedInts(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
