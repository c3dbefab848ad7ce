// Package models defines the quote record persisted as JSON and its index projection.
package models

import (
	"encoding/json"
	"log/slog"
	"unicode/utf8"
)

// Status is the acceptance state of a quote.
type Status string

const (
	StatusPending  Status = "in_attesa"
	StatusAccepted Status = "accettata"
)

// Legacy values written by older versions of the application.
const (
	legacyPending  = "pending"
	legacyAccepted = "accepted"
)

// NormalizeStatus maps legacy and missing status values to the current ones.
// Values it does not recognise are returned unchanged.
func NormalizeStatus(s Status) Status {
	switch s {
	case "", legacyPending:
		return StatusPending
	case legacyAccepted:
		return StatusAccepted
	}
	return s
}

// Valid reports whether s is one of the two statuses a client may set.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusAccepted
}

// Label returns the Italian label shown in lists.
func (s Status) Label() string {
	if NormalizeStatus(s) == StatusAccepted {
		return "Accettata"
	}
	return "In attesa"
}

// Record is one quote, stored as dati_offerta.json.
type Record struct {
	Date             string `json:"date"`
	Customer         string `json:"customer"`
	CustomerEmail    string `json:"customer_email"`
	Address          string `json:"address"`
	OfferDescription string `json:"offer_description"`
	OfferNumber      string `json:"offer_number"`
	ID               string `json:"id"`
	Tabs             []Tab  `json:"tabs"`
	Status           Status `json:"status,omitempty"`
	PDFPath          string `json:"pdf_path,omitempty"`
}

// Normalize fixes up fields that older or hand-edited files may carry:
// tabs is never nil and legacy status values are migrated.
func (r *Record) Normalize() {
	if r.Tabs == nil {
		r.Tabs = []Tab{}
	}
	r.Status = NormalizeStatus(r.Status)
}

// UnmarshalJSON decodes a record tolerantly. A missing or malformed tabs
// value becomes an empty list and individual tabs that fail to decode are
// logged and dropped.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		Tabs json.RawMessage `json:"tabs"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	r.Tabs = decodeTabs(aux.Tabs, r.ID)
	r.Normalize()
	return nil
}

func decodeTabs(raw json.RawMessage, recordID string) []Tab {
	tabs := []Tab{}
	if len(raw) == 0 {
		return tabs
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		slog.Warn("tabs is not a list, using empty tabs", "offer_id", recordID, "error", err)
		return tabs
	}

	for i, item := range items {
		var t Tab
		if err := json.Unmarshal(item, &t); err != nil {
			slog.Warn("skipping undecodable tab", "offer_id", recordID, "tab", i, "error", err)
			continue
		}
		tabs = append(tabs, t)
	}
	return tabs
}

// descriptionLimit is the number of characters kept in an index summary.
const descriptionLimit = 100

// IndexEntry is the summary of a record kept in offerte_index.json.
type IndexEntry struct {
	ID            string `json:"id"`
	OfferNumber   string `json:"offer_number"`
	Date          string `json:"date"`
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	Description   string `json:"description"`
}

// NewIndexEntry projects a record onto its index summary.
func NewIndexEntry(r *Record) IndexEntry {
	return IndexEntry{
		ID:            r.ID,
		OfferNumber:   r.OfferNumber,
		Date:          r.Date,
		Customer:      r.Customer,
		CustomerEmail: r.CustomerEmail,
		Description:   TruncateDescription(r.OfferDescription),
	}
}

// TruncateDescription keeps the first 100 characters and appends "..."
// when the text was longer.
func TruncateDescription(s string) string {
	if utf8.RuneCountInString(s) <= descriptionLimit {
		return s
	}
	return string([]rune(s)[:descriptionLimit]) + "..."
}
