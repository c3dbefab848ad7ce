package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CounterFileName holds the last issued sequence number per year.
const CounterFileName = "counter.json"

// Counter issues offer numbers of the form YYYY-NNNN. Numbers are never
// reused, even after the quote is deleted. There is no locking: two callers
// racing on the same year can receive the same number.
type Counter struct {
	path string
	now  func() time.Time
}

// NewCounter returns the counter stored in dataDir.
func NewCounter(dataDir string) *Counter {
	return &Counter{
		path: filepath.Join(dataDir, CounterFileName),
		now:  time.Now,
	}
}

// Next increments the current year's sequence, persists it and returns the
// formatted number.
func (c *Counter) Next() (string, error) {
	counts, err := c.load()
	if err != nil {
		return "", err
	}

	year := strconv.Itoa(c.now().Year())
	counts[year]++

	if err := writeJSON(c.path, counts); err != nil {
		return "", fmt.Errorf("failed to write counter: %w", err)
	}
	return formatNumber(year, counts[year]), nil
}

// Peek returns the number Next would issue without consuming it.
func (c *Counter) Peek() (string, error) {
	counts, err := c.load()
	if err != nil {
		return "", err
	}
	year := strconv.Itoa(c.now().Year())
	return formatNumber(year, counts[year]+1), nil
}

// load reads the counter file, creating it with the current year at zero
// when it does not exist yet.
func (c *Counter) load() (map[string]int, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		counts := map[string]int{strconv.Itoa(c.now().Year()): 0}
		if err := writeJSON(c.path, counts); err != nil {
			return nil, fmt.Errorf("failed to create counter: %w", err)
		}
		return counts, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read counter: %w", err)
	}

	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, fmt.Errorf("failed to parse counter: %w", err)
	}
	// a file holding null decodes to a nil map
	if counts == nil {
		counts = make(map[string]int)
	}
	return counts, nil
}

func formatNumber(year string, n int) string {
	return fmt.Sprintf("%s-%04d", year, n)
}
