package theme

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed themes.yaml
var defaultTableYAML []byte

// Entry maps a keyword to a background music asset.
type Entry struct {
	Keyword string `yaml:"keyword"`
	Asset   string `yaml:"asset"`
}

// Table is an ordered keyword table. Order decides which keyword wins when
// several occur in the same theme.
type Table struct {
	Default string  `yaml:"default"`
	Themes  []Entry `yaml:"themes"`
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	t, err := ParseTable(defaultTableYAML)
	if err != nil {
		panic("embedded theme table: " + err.Error())
	}
	return t
}

// LoadTable reads a YAML table from path. An empty path returns the built-in table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme table: %w", err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("theme table %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("themes", len(t.Themes)).Msg("Theme table loaded")
	return t, nil
}

// ParseTable decodes and validates a YAML table. Keywords are lower-cased.
func ParseTable(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	if strings.TrimSpace(t.Default) == "" {
		return nil, fmt.Errorf("default asset is required")
	}
	seen := make(map[string]bool, len(t.Themes))
	for i := range t.Themes {
		e := &t.Themes[i]
		e.Keyword = strings.ToLower(strings.TrimSpace(e.Keyword))
		if e.Keyword == "" {
			return nil, fmt.Errorf("theme %d: keyword is required", i)
		}
		if strings.TrimSpace(e.Asset) == "" {
			return nil, fmt.Errorf("theme %q: asset is required", e.Keyword)
		}
		if seen[e.Keyword] {
			return nil, fmt.Errorf("theme %q listed twice", e.Keyword)
		}
		seen[e.Keyword] = true
	}
	return &t, nil
}

// Resolver picks background music for a free-text theme.
type Resolver struct {
	assetDir string
	table    *Table
}

// NewResolver creates a resolver whose asset paths are relative to assetDir.
func NewResolver(assetDir string, table *Table) *Resolver {
	if table == nil {
		table = DefaultTable()
	}
	return &Resolver{assetDir: assetDir, table: table}
}

// Resolve returns the asset of the first keyword contained in the
// lower-cased theme, or the default asset when none matches.
func (r *Resolver) Resolve(theme string) string {
	lowered := strings.ToLower(theme)
	for _, e := range r.table.Themes {
		if strings.Contains(lowered, e.Keyword) {
			return r.path(e.Asset)
		}
	}
	return r.path(r.table.Default)
}

// Themes lists the keywords in match order.
func (r *Resolver) Themes() []string {
	out := make([]string, len(r.table.Themes))
	for i, e := range r.table.Themes {
		out[i] = e.Keyword
	}
	return out
}

func (r *Resolver) path(asset string) string {
	if r.assetDir == "" || filepath.IsAbs(asset) {
		return asset
	}
	return filepath.Join(r.assetDir, asset)
}
