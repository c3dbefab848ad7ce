// Package store persists quotes as JSON files under
// <data>/<CUSTOMER>/<OFFER-NUMBER>/ together with the summary index and the
// offer number counter.
//
// The record files are the source of truth. The index is a cache used for
// single lookups and can be rebuilt from a full scan with RebuildIndex.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
)

const (
	// RecordFileName is the JSON file inside each offer directory.
	RecordFileName = "dati_offerta.json"
	// PreviewDirName holds scratch preview documents.
	PreviewDirName = "_previews"
)

var (
	// ErrNotFound is returned when a record is not indexed or its file is missing.
	ErrNotFound = errors.New("offerta not found")
	// ErrInvalidPath is returned when a customer or offer number cannot be
	// used as a directory name.
	ErrInvalidPath = errors.New("invalid path segment")
)

// skipDirs are directories at the top of the data dir that never hold customers.
var skipDirs = map[string]bool{
	"__pycache__":  true,
	PreviewDirName: true,
}

// Store reads and writes quote records.
type Store struct {
	dataDir string
	index   *Index
	logger  *slog.Logger
}

// New returns a store rooted at dataDir.
func New(dataDir string) *Store {
	return &Store{
		dataDir: dataDir,
		index:   NewIndex(dataDir),
		logger:  slog.Default().With("component", "store"),
	}
}

// DataDir returns the root directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// Index returns the summary index kept next to the records.
func (s *Store) Index() *Index {
	return s.index
}

// PreviewDir returns the scratch directory for preview documents.
func (s *Store) PreviewDir() string {
	return filepath.Join(s.dataDir, PreviewDirName)
}

// RecordDir returns the directory of the offer for customer and number.
func (s *Store) RecordDir(customer, offerNumber string) string {
	return filepath.Join(s.dataDir, strings.ToUpper(customer), offerNumber)
}

// DocumentPath returns the location of the record's rendered document, or ""
// when it has none.
func (s *Store) DocumentPath(r *models.Record) string {
	if r.PDFPath == "" {
		return ""
	}
	return filepath.Join(s.RecordDir(r.Customer, r.OfferNumber), filepath.Base(r.PDFPath))
}

// Save writes the record file, creating its directory. It overwrites any
// previous version.
func (s *Store) Save(r *models.Record) error {
	if err := ValidateSegment(r.Customer); err != nil {
		return fmt.Errorf("customer %q: %w", r.Customer, err)
	}
	if err := ValidateSegment(r.OfferNumber); err != nil {
		return fmt.Errorf("offer number %q: %w", r.OfferNumber, err)
	}

	dir := s.RecordDir(r.Customer, r.OfferNumber)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create offer directory: %w", err)
	}

	if r.Tabs == nil {
		r.Tabs = []models.Tab{}
	}
	if err := writeJSON(filepath.Join(dir, RecordFileName), r); err != nil {
		return fmt.Errorf("failed to write offerta %s: %w", r.ID, err)
	}
	return nil
}

// Load finds the record through the index and reads its file.
func (s *Store) Load(id string) (*models.Record, error) {
	entry, err := s.index.Find(id)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.RecordDir(entry.Customer, entry.OfferNumber), RecordFileName)
	r, err := readRecord(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("indexed offerta has no file", "offer_id", id, "path", path)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Owner returns the id of the record stored in the directory for customer
// and number, or "" when the directory holds no record.
func (s *Store) Owner(customer, offerNumber string) (string, error) {
	path := filepath.Join(s.RecordDir(customer, offerNumber), RecordFileName)
	r, err := readRecord(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return r.ID, nil
}

// Discard removes the record file for customer and number along with the
// directories it leaves empty. Other files in the directory are kept.
func (s *Store) Discard(customer, offerNumber string) error {
	dir := s.RecordDir(customer, offerNumber)
	if err := os.Remove(filepath.Join(dir, RecordFileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove offerta file: %w", err)
	}
	s.removeIfEmpty(dir)
	s.removeIfEmpty(filepath.Dir(dir))
	return nil
}

// Relocate moves the files of an offer whose customer or number changed.
// The new record file must already be written. Every other file is copied
// before anything is removed; when a copy fails the copies made so far are
// removed and the old directory is left untouched. Removal of the old
// directories is best effort.
func (s *Store) Relocate(oldCustomer, oldNumber, newCustomer, newNumber string) error {
	oldDir := s.RecordDir(oldCustomer, oldNumber)
	newDir := s.RecordDir(newCustomer, newNumber)
	if oldDir == newDir {
		return nil
	}

	entries, err := os.ReadDir(oldDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read old offer directory: %w", err)
	}

	if err := os.MkdirAll(newDir, 0755); err != nil {
		return fmt.Errorf("failed to create offer directory: %w", err)
	}
	var copied []string
	for _, e := range entries {
		if e.Name() == RecordFileName || e.IsDir() {
			continue
		}
		dst := filepath.Join(newDir, e.Name())
		if err := copyFile(filepath.Join(oldDir, e.Name()), dst); err != nil {
			for _, c := range copied {
				if rmErr := os.Remove(c); rmErr != nil {
					s.logger.Warn("failed to remove partial copy", "path", c, "error", rmErr)
				}
			}
			return fmt.Errorf("failed to copy %s: %w", e.Name(), err)
		}
		copied = append(copied, dst)
	}

	if err := os.RemoveAll(oldDir); err != nil {
		s.logger.Warn("failed to remove old offer directory", "path", oldDir, "error", err)
		return nil
	}
	s.removeIfEmpty(filepath.Dir(oldDir))
	return nil
}

// Delete removes the index entry, the offer directory and the customer
// directory when it is left empty.
func (s *Store) Delete(id string) error {
	entry, err := s.index.Find(id)
	if err != nil {
		return err
	}

	if _, err := s.index.Remove(id); err != nil {
		return err
	}

	dir := s.RecordDir(entry.Customer, entry.OfferNumber)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove offer directory: %w", err)
	}
	s.logger.Info("offer directory removed", "offer_id", id, "path", dir)
	s.removeIfEmpty(filepath.Dir(dir))
	return nil
}

// ListAll scans every customer and offer directory, bypassing the index.
// Unreadable files are logged and skipped. Records are sorted newest offer
// number first.
func (s *Store) ListAll() ([]*models.Record, error) {
	customers, err := os.ReadDir(s.dataDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*models.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	records := []*models.Record{}
	for _, c := range customers {
		if !c.IsDir() || skipDirs[c.Name()] {
			continue
		}

		customerDir := filepath.Join(s.dataDir, c.Name())
		offers, err := os.ReadDir(customerDir)
		if err != nil {
			s.logger.Warn("failed to read customer directory", "path", customerDir, "error", err)
			continue
		}

		for _, o := range offers {
			if !o.IsDir() {
				continue
			}
			path := filepath.Join(customerDir, o.Name(), RecordFileName)
			r, err := readRecord(path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				s.logger.Warn("skipping corrupt offerta", "path", path, "error", err)
				continue
			}
			records = append(records, r)
		}
	}

	SortByOfferNumber(records)
	return records, nil
}

// RebuildIndex rewrites the index from a full scan and returns the number
// of entries written.
func (s *Store) RebuildIndex() (int, error) {
	records, err := s.ListAll()
	if err != nil {
		return 0, err
	}

	entries := make([]models.IndexEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, models.NewIndexEntry(r))
	}
	if err := s.index.Save(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// SortByOfferNumber orders records by (year, sequence) descending. Numbers
// that are not YYYY-N compare as plain strings.
func SortByOfferNumber(records []*models.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return offerNumberLess(records[j].OfferNumber, records[i].OfferNumber)
	})
}

func offerNumberLess(a, b string) bool {
	ay, an, aok := splitOfferNumber(a)
	by, bn, bok := splitOfferNumber(b)
	if aok && bok {
		if ay != by {
			return ay < by
		}
		return an < bn
	}
	return a < b
}

func splitOfferNumber(s string) (string, int, bool) {
	year, seq, ok := strings.Cut(s, "-")
	if !ok || strings.Contains(seq, "-") {
		return "", 0, false
	}
	n, err := strconv.Atoi(seq)
	if err != nil {
		return "", 0, false
	}
	return year, n, true
}

// ValidateSegment rejects values that would escape or nest directories.
func ValidateSegment(s string) error {
	switch {
	case strings.TrimSpace(s) == "":
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	case s == "." || s == "..":
		return fmt.Errorf("%w: %q", ErrInvalidPath, s)
	case strings.ContainsAny(s, `/\`+"\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidPath, s)
	}
	return nil
}

func (s *Store) removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err != nil {
		s.logger.Warn("failed to remove empty customer directory", "path", dir, "error", err)
		return
	}
	s.logger.Info("customer directory removed", "path", dir)
}

func readRecord(path string) (*models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r models.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	r.Normalize()
	return &r, nil
}

// writeJSON writes v with four-space indentation, keeping non-ASCII text
// and HTML characters as they are.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
