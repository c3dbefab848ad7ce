package formdecode

import (
	"strconv"
	"strings"
)

// candidate key templates: {i} is the tab index, {r} the row index.
// The first key present in the form wins, even when its value is empty.
type candidates struct {
	keys []string
	def  string
}

// Tab type.
var tabTypeKeys = []string{"tab_{i}type_", "tab_type_{i}"}

// bareTabTypeKey only applies to tab 0.
const bareTabTypeKey = "tab_type_"

// Single product fields.
var (
	singleName        = candidates{keys: []string{"product_{i}name_", "product_name_{i}", "product_name_"}}
	singleCode        = candidates{keys: []string{"product_{i}code_", "product_code_{i}", "product_code_"}}
	singleUnitPrice   = candidates{keys: []string{"unit_{i}price_", "unit_price_{i}", "unit_price_"}, def: "0"}
	singleQuantity    = candidates{keys: []string{"quantity_{i}", "quantity_"}, def: "1"}
	singleDescription = candidates{keys: []string{"description_{i}", "description_"}}
	singleDiscount    = candidates{keys: []string{"discount_{i}", "discount_"}, def: "0"}
	singlePowerW      = candidates{keys: []string{"power_{i}w_", "power_w_{i}", "power_w_"}}
	singleVolts       = candidates{keys: []string{"volts_{i}", "volts_"}}
	singleSize        = candidates{keys: []string{"size_{i}", "size_"}}
	singlePosizione   = candidates{keys: []string{"posizione_{i}", "posizione_"}}
	singleExisting    = candidates{keys: []string{"existing_image_{i}", "existing_image_"}}

	// any of these equal to "on" sets the flag
	discountFlagKeys = []string{"discount_{i}flag_", "discount_flag_{i}", "discount_flag_"}
	// looked up in the uploaded files
	imageFileKeys = []string{"product_{i}image_", "product_image_{i}", "product_image_"}
)

// Multi product row fields.
var (
	rowName        = candidates{keys: []string{"product_{i}name__{r}", "product_name__{r}"}}
	rowModel       = candidates{keys: []string{"product_{i}model__{r}", "product_model__{r}"}}
	rowPrice       = candidates{keys: []string{"product_{i}price__{r}", "product_price__{r}"}, def: "0"}
	rowQuantity    = candidates{keys: []string{"product_{i}quantity__{r}", "product_quantity__{r}"}, def: "1"}
	rowDescription = candidates{keys: []string{"product_{i}description__{r}", "product_description__{r}", "description_{i}_{r}"}}
)

// defaultRows are always tried for a multi-product tab.
var defaultRows = []int{0, 1, 2}

func expand(tmpl string, tab, row int) string {
	return strings.NewReplacer("{i}", strconv.Itoa(tab), "{r}", strconv.Itoa(row)).Replace(tmpl)
}

// lookup returns the value of the first candidate key present in values.
func lookup(values map[string]string, keys []string, tab, row int) (string, bool) {
	for _, tmpl := range keys {
		if v, ok := values[expand(tmpl, tab, row)]; ok {
			return v, true
		}
	}
	return "", false
}

func (c candidates) resolve(values map[string]string, tab, row int) string {
	if v, ok := lookup(values, c.keys, tab, row); ok {
		return v
	}
	return c.def
}
