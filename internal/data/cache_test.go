package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRows = smardHeader +
	"01.01.2024 00:00;01.01.2024 00:15;1,00;0\n" +
	"01.01.2024 00:15;01.01.2024 00:30;2,00;0\n"

func TestSeriesCacheReloadsChangedFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	require.NoError(t, os.WriteFile(path, []byte(twoRows), 0644))

	c := NewSeriesCache(time.Hour)
	s1, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s1.Len())
	assert.Equal(t, 1, c.Len())

	s2, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
	assert.Equal(t, 1, c.Len())

	longer := twoRows + "01.01.2024 00:30;01.01.2024 00:45;3,00;0\n"
	require.NoError(t, os.WriteFile(path, []byte(longer), 0644))
	s3, err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s3.Len())

	c.Clear()
	assert.Zero(t, c.Len())
}

func TestSeriesCacheExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSeriesCache(time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", yearSeries(t))
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)

	c.Set("other", yearSeries(t))
	assert.Equal(t, 1, c.Len(), "expired entries are dropped on Set")
}

func TestCatalogScanAndSave(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jan.csv"), []byte(twoRows), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "feb.json"), []byte(`{"name":"feb","prices":[
		{"timestamp":"2024-02-01T00:00:00+01:00","price":5},
		{"timestamp":"2024-02-01T00:15:00+01:00","price":-1}]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.csv"), []byte("nope"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

	cat, err := ScanDatasets(dir)
	require.Error(t, err, "broken file is reported")
	require.Len(t, cat.Datasets, 2)
	assert.Equal(t, "feb", cat.Datasets[0].Name)
	assert.Equal(t, "jan", cat.Datasets[1].Name)
	assert.Equal(t, 2, cat.Datasets[1].Intervals)

	feb, ok := cat.Find("feb")
	require.True(t, ok)
	s, err := LoadSeries(feb.Path)
	require.NoError(t, err)
	assert.Equal(t, []float64{5, -1}, s.Prices())

	path := filepath.Join(dir, "out", "datasets.json")
	require.NoError(t, SaveCatalog(cat, path))
	loaded, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, len(cat.Datasets), len(loaded.Datasets))
	assert.Equal(t, cat.Datasets[1].Path, loaded.Datasets[1].Path)
}
