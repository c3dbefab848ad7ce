package quotes

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/LucaVano/app-oferte-10-05/internal/formdecode"
	"github.com/LucaVano/app-oferte-10-05/internal/models"
	"github.com/LucaVano/app-oferte-10-05/internal/pdf"
	"github.com/LucaVano/app-oferte-10-05/internal/store"
)

// PreviewMaxAge is how long a preview document is kept.
const PreviewMaxAge = time.Hour

var previewName = regexp.MustCompile(`^preview_[0-9a-f-]+\.pdf$`)

// Preview renders the form as it is, without saving a record, and returns
// the preview file name. Stale previews are removed first.
func (s *Service) Preview(ctx context.Context, f formdecode.Form) (string, error) {
	if _, err := s.PrunePreviews(PreviewMaxAge); err != nil {
		s.logger.Warn("failed to prune previews", "error", err)
	}

	tabs, err := s.decoder.Decode(f)
	if err != nil {
		return "", fmt.Errorf("failed to decode form: %w", err)
	}

	rec := s.previewHeader(f).record()
	rec.ID = "preview-" + s.newID()
	rec.Tabs = tabs
	rec.Status = models.StatusPending

	name := "preview_" + s.newID() + ".pdf"
	if _, err := s.renderer.Render(rec, pdf.ModePreview, filepath.Join(s.store.PreviewDir(), name)); err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return name, nil
}

// PreviewPath returns the file of a preview by name. Names that are not
// preview files, or previews that no longer exist, give store.ErrNotFound.
func (s *Service) PreviewPath(name string) (string, error) {
	if !previewName.MatchString(name) {
		return "", store.ErrNotFound
	}
	path := filepath.Join(s.store.PreviewDir(), name)
	if _, err := os.Stat(path); err != nil {
		return "", store.ErrNotFound
	}
	return path, nil
}

// PrunePreviews deletes preview files older than maxAge and returns how
// many were removed.
func (s *Service) PrunePreviews(maxAge time.Duration) (int, error) {
	dir := s.store.PreviewDir()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read preview directory: %w", err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to remove preview", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("previews pruned", "removed", removed)
	}
	return removed, nil
}
