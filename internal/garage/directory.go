// Package garage recommends a partner garage for a towed vehicle.
package garage

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hellas-direct/intake-assistant/internal/rules"
)

//go:embed garages.md
var defaultDirectory string

// Fallback recommendations when the directory has no rows.
const (
	FallbackAthens       = "Συνεργείο Αθήνας - Λ. Αθηνών 123 (210-1234567)"
	FallbackThessaloniki = "Συνεργείο Θεσσαλονίκης - Μ. Αλεξάνδρου 456 (2310-987654)"
	FallbackGeneric      = "Συνεργείο της περιοχής σας"
)

// Garage is one row of the partner directory.
type Garage struct {
	Type     string
	Name     string
	Location string
}

// String formats the garage the way it is shown to callers.
func (g Garage) String() string {
	return g.Name + " - " + g.Location
}

// Directory answers garage recommendations, caching results per location.
type Directory struct {
	garages []Garage
	cache   *lru.Cache[string, string]
}

// Load reads the directory from path, or the built-in list when path is empty.
func Load(path string, cacheSize int) (*Directory, error) {
	content := defaultDirectory
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read garage directory: %w", err)
		}
		content = string(data)
	}
	return New(Parse(content), cacheSize)
}

// New builds a directory from parsed rows.
func New(garages []Garage, cacheSize int) (*Directory, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("init garage cache: %w", err)
	}
	return &Directory{garages: garages, cache: cache}, nil
}

// Parse reads a Markdown table with columns type, name and location. The
// header row, separator rows and rows missing a name or location are skipped.
func Parse(markdown string) []Garage {
	var (
		garages []Garage
		header  = true
	)
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") {
			continue
		}
		cells := strings.Split(strings.Trim(line, "|"), "|")
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if isSeparator(cells) {
			continue
		}
		if header {
			header = false
			continue
		}
		if len(cells) < 3 || cells[1] == "" || cells[2] == "" {
			continue
		}
		garages = append(garages, Garage{Type: cells[0], Name: cells[1], Location: cells[2]})
	}
	return garages
}

func isSeparator(cells []string) bool {
	for _, c := range cells {
		if strings.Trim(c, "-: ") != "" {
			return false
		}
	}
	return true
}

// Garages returns the parsed rows.
func (d *Directory) Garages() []Garage {
	return d.garages
}

// Recommend picks a garage for a vehicle at location.
func (d *Directory) Recommend(location string) string {
	key := rules.Normalize(location)
	if v, ok := d.cache.Get(key); ok {
		return v
	}
	v := d.recommend(key)
	d.cache.Add(key, v)
	return v
}

func (d *Directory) recommend(location string) string {
	if len(d.garages) > 0 {
		if location != "" {
			for _, g := range d.garages {
				if strings.Contains(rules.Normalize(g.Location), location) {
					return g.String()
				}
			}
			if pref, ok := rules.Prefecture(location); ok {
				for _, g := range d.garages {
					if strings.Contains(rules.Normalize(g.Location), pref) {
						return g.String()
					}
				}
			}
		}
		return d.garages[0].String()
	}

	switch {
	case strings.Contains(location, "αθήνα"):
		return FallbackAthens
	case strings.Contains(location, "θεσσαλονίκη"):
		return FallbackThessaloniki
	}
	return FallbackGeneric
}
