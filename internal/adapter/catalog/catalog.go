// Package catalog serves the static list of cities users can search and add.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/weather-tracker/internal/domain"
	json "github.com/goccy/go-json"
)

//go:embed cities.json
var bundled []byte

// Catalog is an immutable, ordered list of cities.
type Catalog struct {
	cities []domain.CityRef
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(bundled)
}

// Open loads a catalog from path, or the bundled one when path is empty.
func Open(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON array of catalog entries.
func Parse(data []byte) (*Catalog, error) {
	var cities []domain.CityRef
	if err := json.Unmarshal(data, &cities); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return &Catalog{cities: cities}, nil
}

// Search returns the entries whose name contains query, ignoring case, in
// catalog order. A blank query returns every entry.
func (c *Catalog) Search(query string) []domain.CityRef {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return c.All()
	}

	var out []domain.CityRef
	for _, city := range c.cities {
		if strings.Contains(strings.ToLower(city.Name), q) {
			out = append(out, city)
		}
	}
	return out
}

// FindByName returns the first entry whose name equals name exactly.
func (c *Catalog) FindByName(name string) (domain.CityRef, bool) {
	for _, city := range c.cities {
		if city.Name == name {
			return city, true
		}
	}
	return domain.CityRef{}, false
}

// All returns a copy of every entry.
func (c *Catalog) All() []domain.CityRef {
	out := make([]domain.CityRef, len(c.cities))
	copy(out, c.cities)
	return out
}

// Len reports the number of entries.
func (c *Catalog) Len() int { return len(c.cities) }
