package quotes

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/LucaVano/app-oferte-10-05/internal/formdecode"
	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/store"
)

const dateLayout = "2006-01-02"

// header is the part of a quote typed directly into the form.
type header struct {
	Date             string `form:"date"`
	Customer         string `form:"customer" validate:"required,pathsegment"`
	CustomerEmail    string `form:"customer_email"`
	Address          string `form:"address"`
	OfferDescription string `form:"offer_description"`
	OfferNumber      string `form:"offer_number" validate:"required,pathsegment"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	// customer and offer number become directory names
	_ = v.RegisterValidation("pathsegment", func(fl validator.FieldLevel) bool {
		return store.ValidateSegment(fl.Field().String()) == nil
	})
	return v
}

func headerFromForm(f formdecode.Form) header {
	return header{
		Date:             f.Get("date"),
		Customer:         strings.TrimSpace(f.Get("customer")),
		CustomerEmail:    strings.TrimSpace(f.Get("customer_email")),
		Address:          f.Get("address"),
		OfferDescription: f.Get("offer_description"),
		OfferNumber:      strings.TrimSpace(f.Get("offer_number")),
	}
}

func (h header) record() *models.Record {
	return &models.Record{
		Date:             h.Date,
		Customer:         h.Customer,
		CustomerEmail:    h.CustomerEmail,
		Address:          h.Address,
		OfferDescription: h.OfferDescription,
		OfferNumber:      h.OfferNumber,
	}
}

// ValidationError lists the header fields that failed validation. It
// matches ErrInvalidRecord with errors.Is, and ErrOfferNumberTaken when the
// offer directory belongs to another quote.
type ValidationError struct {
	Fields   []string
	problems []string
	cause    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidRecord, strings.Join(e.problems, ", "))
}

func (e *ValidationError) Unwrap() []error {
	if e.cause != nil {
		return []error{ErrInvalidRecord, e.cause}
	}
	return []error{ErrInvalidRecord}
}

func offerNumberTaken(customer, offerNumber string) error {
	return &ValidationError{
		Fields:   []string{"offer_number"},
		problems: []string{fmt.Sprintf("offer_number %s already used for %s", offerNumber, customer)},
		cause:    ErrOfferNumberTaken,
	}
}

func validateHeader(h header) error {
	err := validate.Struct(h)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, fe.Field())
		ve.problems = append(ve.problems, fe.Field()+" "+fe.Tag())
	}
	return ve
}

var previewDefaults = header{
	Customer:         "Cliente Temporaneo",
	CustomerEmail:    "email@esempio.com",
	Address:          "Indirizzo Temporaneo",
	OfferDescription: "Descrizione Temporanea",
	OfferNumber:      "TEMP-0001",
}

// previewHeader fills blank fields with placeholders so a half-filled form
// can still be rendered.
func (s *Service) previewHeader(f formdecode.Form) header {
	h := headerFromForm(f)
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&h.Date, s.Today())
	fill(&h.Customer, previewDefaults.Customer)
	fill(&h.CustomerEmail, previewDefaults.CustomerEmail)
	fill(&h.Address, previewDefaults.Address)
	fill(&h.OfferDescription, previewDefaults.OfferDescription)
	fill(&h.OfferNumber, previewDefaults.OfferNumber)
	return h
}
