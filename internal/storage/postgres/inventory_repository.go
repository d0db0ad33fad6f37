package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// Reserve выполняет check-and-decrement одним условным UPDATE: остаток
// bucket'а уменьшается только там, где его хватает, конкурентные вызовы
// сериализуются блокировкой строки. Денормализованный products.stock
// обновляется в той же транзакции.
func (r *CatalogRepository) Reserve(productID, size string, qty int32) (int64, error) {
	return r.adjustStock(productID, size, qty, true)
}

// Release безусловно возвращает остаток обратно.
func (r *CatalogRepository) Release(productID, size string, qty int32) error {
	_, err := r.adjustStock(productID, size, qty, false)
	return err
}

func (r *CatalogRepository) adjustStock(productID, size string, qty int32, reserve bool) (int64, error) {
	// Неположительный qty превратил бы резерв в пополнение: stock >= $3
	// проходит всегда, а stock - $3 растёт.
	if qty < 1 {
		return 0, domain.ErrQtyInvalid
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var sized bool
	err = tx.QueryRowContext(ctx, `SELECT sized FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&sized)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrProductNotFound
		}
		return 0, fmt.Errorf("lock product: %w", err)
	}

	var remaining int64
	if sized {
		remaining, err = r.adjustSizedTx(ctx, tx, productID, size, qty, reserve)
	} else {
		remaining, err = r.adjustUnsizedTx(ctx, tx, productID, size, qty, reserve)
	}
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit stock adjustment: %w", err)
	}

	return remaining, nil
}

func (r *CatalogRepository) adjustSizedTx(ctx context.Context, tx *sql.Tx, productID, size string, qty int32, reserve bool) (int64, error) {
	var (
		remaining int64
		err       error
	)

	if reserve {
		err = tx.QueryRowContext(ctx, `
			UPDATE product_sizes
			SET stock = stock - $3
			WHERE product_id = $1
			  AND size = $2
			  AND stock >= $3
			RETURNING stock
		`, productID, size, qty).Scan(&remaining)
	} else {
		err = tx.QueryRowContext(ctx, `
			UPDATE product_sizes
			SET stock = stock + $3
			WHERE product_id = $1
			  AND size = $2
			RETURNING stock
		`, productID, size, qty).Scan(&remaining)
	}
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("update size stock: %w", err)
		}
		// Разделяем "размера нет" и "остатка не хватает".
		var available int64
		sizeErr := tx.QueryRowContext(ctx, `
			SELECT stock FROM product_sizes WHERE product_id = $1 AND size = $2
		`, productID, size).Scan(&available)
		if errors.Is(sizeErr, sql.ErrNoRows) {
			return 0, domain.ErrSizeNotFound
		}
		if sizeErr != nil {
			return 0, fmt.Errorf("check size stock: %w", sizeErr)
		}
		return 0, &domain.InsufficientStockError{Size: size, Available: available}
	}

	delta := int64(qty)
	if reserve {
		delta = -delta
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
	`, productID, delta); err != nil {
		return 0, fmt.Errorf("update product total stock: %w", err)
	}

	return remaining, nil
}

func (r *CatalogRepository) adjustUnsizedTx(ctx context.Context, tx *sql.Tx, productID, size string, qty int32, reserve bool) (int64, error) {
	if size != domain.SizeStandard {
		return 0, domain.ErrSizeNotFound
	}

	var (
		remaining int64
		err       error
	)

	if reserve {
		err = tx.QueryRowContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = NOW()
			WHERE id = $1
			  AND stock >= $2
			RETURNING stock
		`, productID, qty).Scan(&remaining)
	} else {
		err = tx.QueryRowContext(ctx, `
			UPDATE products
			SET stock = stock + $2, updated_at = NOW()
			WHERE id = $1
			RETURNING stock
		`, productID, qty).Scan(&remaining)
	}
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("update product stock: %w", err)
		}
		var available int64
		stockErr := tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
		if stockErr != nil {
			return 0, fmt.Errorf("check product stock: %w", stockErr)
		}
		return 0, &domain.InsufficientStockError{Size: size, Available: available}
	}

	return remaining, nil
}

var _ domain.Inventory = (*CatalogRepository)(nil)
