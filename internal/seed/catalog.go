// Package seed fills a database with demo users, plans and publications.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"wanderplan/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed cities.yaml
var defaultCatalog []byte

// City groups the places a generated plan may use.
type City struct {
	Name   string         `yaml:"name"`
	Places []models.Place `yaml:"places"`
}

// Catalog is the set of cities plans are drawn from.
type Catalog struct {
	Cities []City `yaml:"cities"`
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(strings.NewReader(string(defaultCatalog)))
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ParseCatalog(f)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Cities) == 0 {
		return nil, errors.New("catalog has no cities")
	}
	for i, city := range c.Cities {
		if strings.TrimSpace(city.Name) == "" {
			return nil, fmt.Errorf("city %d: name is required", i)
		}
		if len(city.Places) == 0 {
			return nil, fmt.Errorf("city %s: no places", city.Name)
		}
		for j, p := range city.Places {
			if p.ID == "" || p.Name == "" {
				return nil, fmt.Errorf("city %s, place %d: id and name are required", city.Name, j)
			}
		}
	}
	return &c, nil
}
