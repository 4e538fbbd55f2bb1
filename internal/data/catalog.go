package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DatasetInfo describes one price file available for simulation.
type DatasetInfo struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Intervals int       `json:"intervals"`
}

// Catalog is the list of known price files.
type Catalog struct {
	UpdatedAt string        `json:"updated_at"` // ISO 8601 timestamp
	Datasets  []DatasetInfo `json:"datasets"`
}

// Find returns the dataset called name.
func (c *Catalog) Find(name string) (DatasetInfo, bool) {
	if c == nil {
		return DatasetInfo{}, false
	}
	for _, d := range c.Datasets {
		if d.Name == name {
			return d, true
		}
	}
	return DatasetInfo{}, false
}

// Upsert replaces the entry with the same name or appends it. Entries stay sorted by name.
func (c *Catalog) Upsert(info DatasetInfo) {
	for i := range c.Datasets {
		if c.Datasets[i].Name == info.Name {
			c.Datasets[i] = info
			return
		}
	}
	c.Datasets = append(c.Datasets, info)
	sort.Slice(c.Datasets, func(i, j int) bool { return c.Datasets[i].Name < c.Datasets[j].Name })
}

// ScanDatasets builds a catalog from every .csv and .json price file in dir.
// Files that fail to parse are reported in the returned error but do not stop the scan.
func ScanDatasets(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset dir: %w", err)
	}

	cat := &Catalog{UpdatedAt: time.Now().UTC().Format(time.RFC3339)}
	var bad []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".csv" && ext != ".json") || e.Name() == filepath.Base(GetDefaultCatalogPath()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		s, err := LoadSeries(path)
		if err != nil {
			bad = append(bad, fmt.Sprintf("%s: %v", e.Name(), err))
			continue
		}
		cat.Upsert(DatasetInfo{Name: s.Name, Path: path, Start: s.Start(), End: s.End(), Intervals: s.Len()})
	}
	if len(bad) > 0 {
		return cat, fmt.Errorf("skipped %d files: %s", len(bad), strings.Join(bad, "; "))
	}
	return cat, nil
}

// LoadCatalog loads a catalog from a JSON file
func LoadCatalog(filePath string) (*Catalog, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var cat Catalog
	if err := json.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	return &cat, nil
}

// SaveCatalog saves a catalog to a JSON file
func SaveCatalog(cat *Catalog, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}

	return nil
}

// GetDefaultCatalogPath returns the default path for the dataset catalog
func GetDefaultCatalogPath() string {
	if path := os.Getenv("DATASETS_FILE"); path != "" {
		return path
	}
	return "./data/datasets.json"
}
