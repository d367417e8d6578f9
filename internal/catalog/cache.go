package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/govem/internal/atomicfile"
)

const cacheFormat = 1

type cacheFile struct {
	Format    int                 `json:"format"`
	FetchedAt time.Time           `json:"fetched_at"`
	Releases  []ReleaseDescriptor `json:"releases"`
}

// readCache loads the cache file. A missing file returns an error matching
// fs.ErrNotExist.
func readCache(path string) (*cacheFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c cacheFile
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal catalog cache: %w", err)
	}
	if c.Format != cacheFormat {
		return nil, fmt.Errorf("unsupported catalog cache format %d", c.Format)
	}
	return &c, nil
}

// writeCache replaces the cache file atomically.
func writeCache(path string, c *cacheFile) error {
	c.Format = cacheFormat

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("replace catalog cache: %w", err)
	}
	return nil
}
