package catalog

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"gopkg.in/yaml.v3"
)

// Static is a fixed catalog, typically loaded from a YAML file.
type Static struct {
	products []entity.Product
}

type staticFile struct {
	Products []entity.Product `yaml:"products"`
}

// NewStatic returns a catalog serving the given products.
func NewStatic(products []entity.Product) *Static {
	return &Static{products: slices.Clone(products)}
}

// LoadStatic reads a YAML catalog with a top-level "products" list.
func LoadStatic(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseStatic(raw)
}

// ParseStatic decodes a YAML catalog.
func ParseStatic(raw []byte) (*Static, error) {
	var f staticFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	seen := make(map[int]struct{}, len(f.Products))
	for _, p := range f.Products {
		if p.ID <= 0 {
			return nil, fmt.Errorf("catalog product %q has invalid id %d", p.Title, p.ID)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("catalog product id %d is duplicated", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return NewStatic(f.Products), nil
}

var _ repository.ProductCatalog = (*Static)(nil)

func (s *Static) ListProducts(context.Context) ([]entity.Product, error) {
	return slices.Clone(s.products), nil
}

func (s *Static) GetProduct(_ context.Context, id int) (entity.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return entity.Product{}, fmt.Errorf("%w: %d", repository.ErrProductNotFound, id)
}

// Products returns the catalog contents, e.g. for seeding a database.
func (s *Static) Products() []entity.Product {
	return slices.Clone(s.products)
}
