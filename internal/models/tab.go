package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// TabType tags the variant held by a Tab.
type TabType string

const (
	TabSingleProduct TabType = "single_product"
	TabMultiProduct  TabType = "multi_product"
)

// DefaultItemsPerPage is the page-size hint written on every multi-product tab.
const DefaultItemsPerPage = 3

// ErrUnknownTabType is returned when a tab carries a type tag other than
// single_product or multi_product.
var ErrUnknownTabType = errors.New("unknown tab type")

// Tab is one section of a quote. Exactly one of Single or Multi is set.
type Tab struct {
	Single *SingleProduct
	Multi  *MultiProduct
}

// NewSingleTab wraps a single product line.
func NewSingleTab(p SingleProduct) Tab {
	return Tab{Single: &p}
}

// NewMultiTab wraps a product table with the default page-size hint.
func NewMultiTab(rows []ProductRow) Tab {
	if rows == nil {
		rows = []ProductRow{}
	}
	return Tab{Multi: &MultiProduct{Products: rows, MaxItemsPerPage: DefaultItemsPerPage}}
}

// Type returns the variant tag, or "" for a zero Tab.
func (t Tab) Type() TabType {
	switch {
	case t.Single != nil:
		return TabSingleProduct
	case t.Multi != nil:
		return TabMultiProduct
	}
	return ""
}

// SingleProduct is one line item with optional technical data and image.
type SingleProduct struct {
	ProductCode      string `json:"product_code"`
	ProductName      string `json:"product_name"`
	Quantity         string `json:"quantity"`
	UnitPrice        string `json:"unit_price"`
	Description      string `json:"description"`
	Discount         string `json:"discount"`
	DiscountFlag     bool   `json:"discount_flag"`
	PowerW           string `json:"power_w"`
	Volts            string `json:"volts"`
	Size             string `json:"size"`
	Posizione        string `json:"posizione"`
	ProductImagePath string `json:"product_image_path"`
}

// MultiProduct is a table of products paginated by MaxItemsPerPage.
type MultiProduct struct {
	Products        []ProductRow `json:"products"`
	MaxItemsPerPage int          `json:"max_items_per_page"`
}

// PerPage returns the page-size hint, falling back to the default.
func (m *MultiProduct) PerPage() int {
	if m.MaxItemsPerPage <= 0 {
		return DefaultItemsPerPage
	}
	return m.MaxItemsPerPage
}

// ProductRow is one row of a multi-product table. On disk it is the
// five-element array [name, model, price, quantity, description].
type ProductRow struct {
	Name        string
	Model       string
	Price       string
	Quantity    string
	Description string
}

// MarshalJSON writes the row as a five-element array.
func (p ProductRow) MarshalJSON() ([]byte, error) {
	return json.Marshal([5]string{p.Name, p.Model, p.Price, p.Quantity, p.Description})
}

// UnmarshalJSON reads the array form. Short arrays leave trailing fields
// empty and non-string scalars are kept as their literal text.
func (p *ProductRow) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("product row is not an array: %w", err)
	}

	fields := []*string{&p.Name, &p.Model, &p.Price, &p.Quantity, &p.Description}
	for i, dst := range fields {
		if i >= len(items) {
			*dst = ""
			continue
		}
		*dst = scalarString(items[i])
	}
	return nil
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		return ""
	}
	return string(raw)
}

type singleJSON struct {
	Type TabType `json:"type"`
	*SingleProduct
}

type multiJSON struct {
	Type TabType `json:"type"`
	*MultiProduct
}

// MarshalJSON writes the variant with its "type" tag first.
func (t Tab) MarshalJSON() ([]byte, error) {
	switch {
	case t.Single != nil:
		return json.Marshal(singleJSON{Type: TabSingleProduct, SingleProduct: t.Single})
	case t.Multi != nil:
		m := *t.Multi
		if m.Products == nil {
			m.Products = []ProductRow{}
		}
		return json.Marshal(multiJSON{Type: TabMultiProduct, MultiProduct: &m})
	}
	return nil, errors.New("tab has no variant set")
}

// UnmarshalJSON dispatches on the "type" tag.
func (t *Tab) UnmarshalJSON(data []byte) error {
	var head struct {
		Type TabType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("failed to read tab type: %w", err)
	}

	switch head.Type {
	case TabSingleProduct:
		var p SingleProduct
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("failed to decode single_product tab: %w", err)
		}
		*t = Tab{Single: &p}
	case TabMultiProduct:
		var m MultiProduct
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("failed to decode multi_product tab: %w", err)
		}
		if m.Products == nil {
			m.Products = []ProductRow{}
		}
		*t = Tab{Multi: &m}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTabType, head.Type)
	}
	return nil
}
