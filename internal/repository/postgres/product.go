package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/repository"
	"github.com/lib/pq"
)

const productColumns = "id, title, slug, price, description, category, images, creation_at, updated_at"

// ProductRepository is a catalog served from the products table.
type ProductRepository struct {
	db *sql.DB
}

// NewProductRepository creates a ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

var _ repository.ProductCatalog = (*ProductRepository)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (entity.Product, error) {
	var (
		p        entity.Product
		category []byte
	)
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Price, &p.Description, &category, pq.Array(&p.Images), &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(category, &p.Category); err != nil {
		return p, fmt.Errorf("failed to decode category of product %d: %w", p.ID, err)
	}
	return p, nil
}

func (r *ProductRepository) ListProducts(ctx context.Context) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+productColumns+" FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) GetProduct(ctx context.Context, id int) (entity.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Product{}, fmt.Errorf("%w: %d", repository.ErrProductNotFound, id)
	}
	if err != nil {
		return entity.Product{}, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return p, nil
}

// Seed inserts the given products if the table is empty.
func (r *ProductRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	for _, p := range products {
		category, err := json.Marshal(p.Category)
		if err != nil {
			return fmt.Errorf("failed to encode category of product %d: %w", p.ID, err)
		}
		_, err = r.db.ExecContext(ctx,
			"INSERT INTO products ("+productColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
			p.ID, p.Title, p.Slug, p.Price, p.Description, category, pq.Array(p.Images), p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to seed product %d: %w", p.ID, err)
		}
	}
	return nil
}
