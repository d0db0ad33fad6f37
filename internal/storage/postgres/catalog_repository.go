package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// CatalogRepository реализует domain.Catalog и domain.Inventory поверх
// одной пары таблиц, чтобы Reserve и GetProduct видели одно состояние.
// Остатки хранятся в product_sizes, денормализованный суммарный остаток
// поддерживается в products.stock той же транзакцией, что и списание.
type CatalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository создаёт PostgreSQL-реализацию каталога товаров.
func NewCatalogRepository(store *Store) *CatalogRepository {
	return &CatalogRepository{db: store.DB()}
}

func (r *CatalogRepository) GetProduct(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		product domain.Product
		sized   bool
		stock   int64
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, sku, slug, name, image_url, price_minor, sized, stock, created_at, updated_at
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.SKU, &product.Slug, &product.Name, &product.ImageURL,
		&product.PriceMinor, &sized, &stock, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	if !sized {
		product.Sizing = domain.Unsized{Stock: stock}
		return product, nil
	}

	buckets, err := r.loadSizes(ctx, product.ID)
	if err != nil {
		return domain.Product{}, err
	}
	product.Sizing = domain.PerSize{Buckets: buckets}

	return product, nil
}

// Put создаёт или перезаписывает товар вместе с размерной сеткой.
func (r *CatalogRepository) Put(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, sized := product.Sizing.(domain.PerSize)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, sku, slug, name, image_url, price_minor, sized, stock, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE
		SET sku = EXCLUDED.sku,
		    slug = EXCLUDED.slug,
		    name = EXCLUDED.name,
		    image_url = EXCLUDED.image_url,
		    price_minor = EXCLUDED.price_minor,
		    sized = EXCLUDED.sized,
		    stock = EXCLUDED.stock,
		    updated_at = EXCLUDED.updated_at
	`,
		product.ID, product.SKU, product.Slug, product.Name, product.ImageURL,
		product.PriceMinor, sized, product.TotalStock(), product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSKUConflict
		}
		return fmt.Errorf("upsert product: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM product_sizes WHERE product_id = $1`, product.ID); err != nil {
		return fmt.Errorf("clear product sizes: %w", err)
	}

	if ps, ok := product.Sizing.(domain.PerSize); ok {
		for i, bucket := range ps.Buckets {
			if _, err = tx.ExecContext(ctx, `
				INSERT INTO product_sizes (product_id, size, stock, position)
				VALUES ($1,$2,$3,$4)
			`, product.ID, bucket.Size, bucket.Stock, i); err != nil {
				return fmt.Errorf("insert product size: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit put product: %w", err)
	}

	return nil
}

// Delete удаляет товар; размерная сетка уходит каскадом.
func (r *CatalogRepository) Delete(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *CatalogRepository) loadSizes(ctx context.Context, productID string) ([]domain.SizeBucket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT size, stock
		FROM product_sizes
		WHERE product_id = $1
		ORDER BY position ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("load product sizes: %w", err)
	}
	defer rows.Close()

	buckets := make([]domain.SizeBucket, 0)
	for rows.Next() {
		var b domain.SizeBucket
		if err := rows.Scan(&b.Size, &b.Stock); err != nil {
			return nil, fmt.Errorf("scan product size: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product sizes: %w", err)
	}

	return buckets, nil
}

var _ domain.Catalog = (*CatalogRepository)(nil)
