package formdecode

import (
	"errors"
	"mime/multipart"
	"reflect"
	"testing"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
)

type fakeImages struct {
	saved []string
	err   error
}

func (f *fakeImages) SaveImage(fh *multipart.FileHeader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.saved = append(f.saved, fh.Filename)
	return "/static/uploads/20250101000000_" + fh.Filename, nil
}

func decode(t *testing.T, values map[string]string, files map[string]*multipart.FileHeader) []models.Tab {
	t.Helper()
	tabs, err := New(&fakeImages{}).Decode(Form{Values: values, Files: files})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return tabs
}

func TestDecode_SingleProduct(t *testing.T) {
	tabs := decode(t, map[string]string{
		"tab_0type_":       "single_product",
		"product_0name_":   "Forno combinato",
		"product_0code_":   "FC-10",
		"unit_0price_":     "1200,50",
		"quantity_0":       "2",
		"description_0":    "Forno a gas",
		"discount_0":       "100",
		"discount_0flag_":  "on",
		"power_0w_":        "3500",
		"volts_0":          "400",
		"size_0":           "80x70",
		"posizione_0":      "Cucina",
		"existing_image_0": "/static/uploads/old.png",
	}, nil)

	if len(tabs) != 1 {
		t.Fatalf("expected 1 tab, got %d", len(tabs))
	}
	want := models.SingleProduct{
		ProductCode:      "FC-10",
		ProductName:      "Forno combinato",
		Quantity:         "2",
		UnitPrice:        "1200,50",
		Description:      "Forno a gas",
		Discount:         "100",
		DiscountFlag:     true,
		PowerW:           "3500",
		Volts:            "400",
		Size:             "80x70",
		Posizione:        "Cucina",
		ProductImagePath: "/static/uploads/old.png",
	}
	if got := *tabs[0].Single; got != want {
		t.Errorf("single product = %+v, want %+v", got, want)
	}
}

func TestDecode_SingleProductDefaults(t *testing.T) {
	tabs := decode(t, map[string]string{
		"tab_type_3":     "single_product",
		"product_name_3": "Lavastoviglie",
	}, nil)

	if len(tabs) != 1 {
		t.Fatalf("expected 1 tab, got %d", len(tabs))
	}
	p := tabs[0].Single
	if p.UnitPrice != "0" || p.Quantity != "1" || p.Discount != "0" || p.DiscountFlag || p.ProductCode != "" {
		t.Errorf("unexpected defaults: %+v", p)
	}
}

func TestDecode_MissingNameDropsTab(t *testing.T) {
	tabs := decode(t, map[string]string{
		"tab_0type_":     "single_product",
		"product_0code_": "X1",
		"tab_1type_":     "single_product",
		"product_1name_": "Cappa",
	}, nil)

	if len(tabs) != 1 || tabs[0].Single.ProductName != "Cappa" {
		t.Errorf("expected only the named tab, got %+v", tabs)
	}
}

func TestDecode_ConventionIndependent(t *testing.T) {
	prefixed := decode(t, map[string]string{
		"tab_0type_":     "single_product",
		"product_0name_": "Friggitrice",
		"unit_0price_":   "300",
	}, nil)
	suffixed := decode(t, map[string]string{
		"tab_type_0":     "single_product",
		"product_name_0": "Friggitrice",
		"unit_price_0":   "300",
	}, nil)

	if !reflect.DeepEqual(prefixed, suffixed) {
		t.Errorf("decoding differs: %+v vs %+v", prefixed[0].Single, suffixed[0].Single)
	}
}

func TestDecode_BareTabType(t *testing.T) {
	tabs := decode(t, map[string]string{
		"tab_type_":     "single_product",
		"product_name_": "Abbattitore",
	}, nil)

	if len(tabs) != 1 || tabs[0].Single.ProductName != "Abbattitore" {
		t.Errorf("expected implicit tab 0, got %+v", tabs)
	}
}

func TestDecode_FirstPresentKeyWins(t *testing.T) {
	tabs := decode(t, map[string]string{
		"tab_0type_":     "single_product",
		"product_0name_": "Primo",
		"product_name_0": "Secondo",
		"quantity_0":     "",
		"quantity_":      "7",
	}, nil)

	p := tabs[0].Single
	if p.ProductName != "Primo" {
		t.Errorf("expected infix key to win, got %q", p.ProductName)
	}
	if p.Quantity != "" {
		t.Errorf("expected present empty quantity to win, got %q", p.Quantity)
	}
}

func TestDecode_MultiProductRows(t *testing.T) {
	tabs := decode(t, map[string]string{
		"tab_1type_":              "multi_product",
		"product_1name__0":        "  Tavolo  ",
		"product_1model__0":       " T-1 ",
		"product_1price__0":       "150",
		"product_1quantity__0":    "4",
		"product_1description__0": " inox ",
		"product_1name__1":        "   ",
		"product_1model__1":       "ignored",
		"product_1name__5":        "Scaffale",
		"description_1_5":         "a muro",
	}, nil)

	if len(tabs) != 1 || tabs[0].Type() != models.TabMultiProduct {
		t.Fatalf("expected one multi product tab, got %+v", tabs)
	}
	m := tabs[0].Multi
	if m.MaxItemsPerPage != 3 {
		t.Errorf("MaxItemsPerPage = %d, want 3", m.MaxItemsPerPage)
	}
	want := []models.ProductRow{
		{Name: "Tavolo", Model: "T-1", Price: "150", Quantity: "4", Description: "inox"},
		{Name: "Scaffale", Model: "", Price: "0", Quantity: "1", Description: "a muro"},
	}
	if !reflect.DeepEqual(m.Products, want) {
		t.Errorf("rows = %+v, want %+v", m.Products, want)
	}
}

func TestDecode_MultiProductAlwaysEmitted(t *testing.T) {
	tabs := decode(t, map[string]string{"tab_type_2": "multi_product"}, nil)
	if len(tabs) != 1 || len(tabs[0].Multi.Products) != 0 {
		t.Errorf("expected empty multi product tab, got %+v", tabs)
	}
}

func TestDecode_OrderFollowsTabIndex(t *testing.T) {
	tabs := decode(t, map[string]string{
		"tab_10type_":     "single_product",
		"product_10name_": "Dieci",
		"tab_2type_":      "single_product",
		"product_2name_":  "Due",
		"tab_type_":       "multi_product",
	}, nil)

	var names []string
	for _, tab := range tabs {
		names = append(names, tab.Single.ProductName)
	}
	if !reflect.DeepEqual(names, []string{"Due", "Dieci"}) {
		t.Errorf("order = %v", names)
	}
}

func TestDecode_UnknownAndEmptyTypeSkipped(t *testing.T) {
	tabs := decode(t, map[string]string{
		"tab_0type_":     "",
		"product_0name_": "A",
		"tab_1type_":     "servizio",
		"product_1name_": "B",
		"tab_2type_":     "single_product",
		"product_2name_": "C",
	}, nil)

	if len(tabs) != 1 || tabs[0].Single.ProductName != "C" {
		t.Errorf("expected only tab 2, got %+v", tabs)
	}
}

func TestDecode_ImageUpload(t *testing.T) {
	images := &fakeImages{}
	files := map[string]*multipart.FileHeader{
		"product_0image_": {Filename: ""},
		"product_image_0": {Filename: "forno.PNG"},
	}
	tabs, err := New(images).Decode(Form{
		Values: map[string]string{
			"tab_0type_":       "single_product",
			"product_0name_":   "Forno",
			"existing_image_0": "/static/uploads/vecchia.png",
		},
		Files: files,
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if got := tabs[0].Single.ProductImagePath; got != "/static/uploads/20250101000000_forno.PNG" {
		t.Errorf("image path = %q", got)
	}
	if !reflect.DeepEqual(images.saved, []string{"forno.PNG"}) {
		t.Errorf("saved = %v", images.saved)
	}
}

func TestDecode_ImageRejectedKeepsExisting(t *testing.T) {
	images := &fakeImages{}
	tabs, err := New(images).Decode(Form{
		Values: map[string]string{
			"tab_0type_":       "single_product",
			"product_0name_":   "Forno",
			"existing_image_0": "/static/uploads/vecchia.png",
		},
		Files: map[string]*multipart.FileHeader{
			"product_0image_": {Filename: "scheda.pdf"},
		},
	})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := tabs[0].Single.ProductImagePath; got != "/static/uploads/vecchia.png" {
		t.Errorf("image path = %q", got)
	}
	if len(images.saved) != 0 {
		t.Errorf("expected no saved files, got %v", images.saved)
	}
}

func TestDecode_ImageSaveErrorPropagates(t *testing.T) {
	boom := errors.New("disk full")
	_, err := New(&fakeImages{err: boom}).Decode(Form{
		Values: map[string]string{"tab_0type_": "single_product", "product_0name_": "Forno"},
		Files:  map[string]*multipart.FileHeader{"product_0image_": {Filename: "a.png"}},
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped save error, got %v", err)
	}
}

func TestDecode_Recovery(t *testing.T) {
	tabs := decode(t, map[string]string{
		"product_name_7":    "Piastra",
		"product_7_code_a":  "PL-7",
		"product_7_price_a": "89",
		"product_name_8":    "Senza codice",
		"customer":          "Rossi",
	}, nil)

	if len(tabs) != 1 {
		t.Fatalf("expected 1 recovered tab, got %d", len(tabs))
	}
	p := tabs[0].Single
	if p.ProductName != "Piastra" || p.ProductCode != "PL-7" || p.UnitPrice != "89" || p.Quantity != "1" {
		t.Errorf("unexpected recovered product: %+v", p)
	}
}

func TestDecode_NoTabs(t *testing.T) {
	tabs := decode(t, map[string]string{"customer": "Rossi"}, nil)
	if tabs == nil || len(tabs) != 0 {
		t.Errorf("expected empty non-nil tabs, got %#v", tabs)
	}
}
