// Package uploads stores product images on local disk and maps them to the
// URL they are served from.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// StaticURLBase is the URL prefix uploaded files are served under.
	StaticURLBase = "/static/uploads"
	// MaxFileSize matches the request body limit of the web server.
	MaxFileSize = 10 << 20
)

// AllowedExtensions lists the accepted image extensions, lower case.
var AllowedExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
}

var (
	ErrFileTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrInvalidExtension = errors.New("file type is not allowed")
)

// Allowed reports whether filename has an accepted image extension.
func Allowed(filename string) bool {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	return ext != "" && AllowedExtensions[strings.ToLower(ext)]
}

// Store writes uploads into a single directory.
type Store struct {
	baseDir    string
	staticBase string
	now        func() time.Time
	suffix     func() string
}

// NewStore creates a store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{
		baseDir:    baseDir,
		staticBase: StaticURLBase,
		now:        time.Now,
		suffix:     func() string { return uuid.NewString()[:8] },
	}
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string {
	return s.baseDir
}

// SaveImage persists an uploaded image as <YYYYMMDDHHMMSS>_<name> and
// returns the URL path it is served at. When that name is already taken a
// short random suffix is added before the extension.
func (s *Store) SaveImage(fh *multipart.FileHeader) (string, error) {
	if !Allowed(fh.Filename) {
		return "", ErrInvalidExtension
	}
	if fh.Size > MaxFileSize {
		return "", ErrFileTooLarge
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := sanitizeFilename(s.now().Format("20060102150405") + "_" + filepath.Base(fh.Filename))
	absPath := filepath.Join(s.baseDir, name)

	dst, err := os.OpenFile(absPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, os.ErrExist) {
		ext := filepath.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + s.suffix() + ext
		absPath = filepath.Join(s.baseDir, name)
		dst, err = os.OpenFile(absPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(absPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return s.staticBase + "/" + name, nil
}

// Resolve maps a served URL path back to a file on disk. Paths outside the
// uploads prefix resolve to "".
func (s *Store) Resolve(servedPath string) string {
	prefix := s.staticBase + "/"
	if !strings.HasPrefix(servedPath, prefix) {
		return ""
	}
	name := path.Base(strings.TrimPrefix(servedPath, prefix))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return filepath.Join(s.baseDir, name)
}

// sanitizeFilename keeps ASCII letters, digits, dots, dashes and
// underscores; whitespace and other characters become underscores.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		}
		return '_'
	}, name)
	name = strings.Trim(name, "._")

	if len(name) > 200 {
		ext := filepath.Ext(name)
		name = name[:200-len(ext)] + ext
	}
	return name
}
