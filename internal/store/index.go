package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/LucaVano/app-oferte-10-05/internal/models"
)

// IndexFileName is the summary list kept at the root of the data directory.
const IndexFileName = "offerte_index.json"

// Index is the offerte_index.json file. It is a cache of the record files and
// can always be rebuilt from them. Every mutation rewrites the whole file.
type Index struct {
	path string
}

// NewIndex returns the index stored in dataDir.
func NewIndex(dataDir string) *Index {
	return &Index{path: filepath.Join(dataDir, IndexFileName)}
}

// Path returns the index file location.
func (x *Index) Path() string {
	return x.path
}

// Load reads all entries. A missing file is an empty index.
func (x *Index) Load() ([]models.IndexEntry, error) {
	data, err := os.ReadFile(x.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.IndexEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}

	entries := []models.IndexEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse index: %w", err)
	}
	return entries, nil
}

// Save replaces the index with entries.
func (x *Index) Save(entries []models.IndexEntry) error {
	if entries == nil {
		entries = []models.IndexEntry{}
	}
	if err := writeJSON(x.path, entries); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	return nil
}

// Upsert replaces the entry with the same id or appends a new one.
func (x *Index) Upsert(entry models.IndexEntry) error {
	entries, err := x.Load()
	if err != nil {
		return err
	}

	replaced := false
	for i := range entries {
		if entries[i].ID == entry.ID {
			entries[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, entry)
	}
	return x.Save(entries)
}

// Remove drops the entry with id. It reports whether an entry was removed.
func (x *Index) Remove(id string) (bool, error) {
	entries, err := x.Load()
	if err != nil {
		return false, err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return false, nil
	}
	return true, x.Save(kept)
}

// Find returns the entry with id or ErrNotFound.
func (x *Index) Find(id string) (models.IndexEntry, error) {
	entries, err := x.Load()
	if err != nil {
		return models.IndexEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return models.IndexEntry{}, ErrNotFound
}
