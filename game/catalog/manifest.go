package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrManifestNotFound is returned when a manifest file does not exist.
var ErrManifestNotFound = errors.New("manifest not found")

// CardAsset describes one card image as recorded in a manifest.
type CardAsset struct {
	AssetID  string `json:"asset_id"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
	URL      string `json:"url"`
	Bytes    int64  `json:"bytes,omitempty"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
}

// Manifest is a named collection of card assets.
type Manifest struct {
	Name   string      `json:"name"`
	Assets []CardAsset `json:"assets"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

// ListManifests returns the manifest files (by path) found in a directory.
func ListManifests(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	return paths, nil
}

// Validate checks that every asset carries an identifier and an image URL
// and that identifiers are unique within the manifest.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Assets))
	for i, a := range m.Assets {
		if a.AssetID == "" {
			return fmt.Errorf("asset %d has no asset_id", i)
		}
		if a.URL == "" {
			return fmt.Errorf("asset %q has no url", a.AssetID)
		}
		if seen[a.AssetID] {
			return fmt.Errorf("duplicate asset_id %q", a.AssetID)
		}
		seen[a.AssetID] = true
	}
	return nil
}
