package r2

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"regexp"
	"strings"
)

const keyPrefix = "offerte"

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ObjectStore is the subset of Bucket used by Archive.
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Archive copies rendered quote documents to object storage under
// offerte/<CUSTOMER>/<OFFER-NUMBER>/<file>.
type Archive struct {
	store  ObjectStore
	logger *slog.Logger
}

// NewArchive creates an archive backed by store.
func NewArchive(store ObjectStore) *Archive {
	return &Archive{
		store:  store,
		logger: slog.Default().With("component", "archive"),
	}
}

// Key returns the object key of a quote document.
func Key(customer, offerNumber, fileName string) string {
	return path.Join(keyPrefix, keySegment(strings.ToUpper(customer)), keySegment(offerNumber), keySegment(fileName))
}

func keySegment(s string) string {
	s = unsafeKeyChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "_.")
	if s == "" {
		return "_"
	}
	return s
}

// Store uploads the local document, replacing any previous copy.
func (a *Archive) Store(ctx context.Context, customer, offerNumber, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	key := Key(customer, offerNumber, path.Base(localPath))
	if err := a.store.Put(ctx, key, f, "application/pdf"); err != nil {
		return err
	}
	a.logger.Info("document archived", "key", key)
	return nil
}

// Remove deletes the archived copy if there is one.
func (a *Archive) Remove(ctx context.Context, customer, offerNumber, fileName string) error {
	key := Key(customer, offerNumber, fileName)
	exists, err := a.store.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := a.store.Delete(ctx, key); err != nil {
		return err
	}
	a.logger.Info("archived document removed", "key", key)
	return nil
}
