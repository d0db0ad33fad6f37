package postgres

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func sampleSizedProduct(id, sku string) domain.Product {
	now := time.Now().UTC().Round(time.Microsecond)
	return domain.Product{
		ID:         id,
		SKU:        sku,
		Slug:       "classic-hoodie",
		Name:       "Classic Hoodie",
		PriceMinor: 500,
		Sizing: domain.PerSize{Buckets: []domain.SizeBucket{
			{Size: "M", Stock: 5},
			{Size: "L", Stock: 3},
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCatalogRepository_PostgresPutGetDelete(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)

	product := sampleSizedProduct("product-1", "SKU-1")
	if err := repo.Put(product); err != nil {
		t.Fatalf("put product: %v", err)
	}

	got, err := repo.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if got.SKU != product.SKU || got.TotalStock() != 8 {
		t.Fatalf("unexpected product: %+v", got)
	}
	if stock, ok := got.StockFor("L"); !ok || stock != 3 {
		t.Fatalf("unexpected stock for L: %d ok=%v", stock, ok)
	}

	dup := sampleSizedProduct("product-2", "SKU-1")
	if err := repo.Put(dup); !errors.Is(err, domain.ErrSKUConflict) {
		t.Fatalf("expected ErrSKUConflict on duplicate SKU, got %v", err)
	}

	if _, err := repo.GetProduct("missing"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	if err := repo.Delete(product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if err := repo.Delete(product.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound on repeated delete, got %v", err)
	}
}

func TestCatalogRepository_PostgresUnsizedProduct(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	product := domain.Product{
		ID:         "product-legacy",
		SKU:        "SKU-LEGACY",
		Slug:       "gift-card",
		Name:       "Gift Card",
		PriceMinor: 1000,
		Sizing:     domain.Unsized{Stock: 7},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Put(product); err != nil {
		t.Fatalf("put unsized product: %v", err)
	}

	got, err := repo.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("get unsized product: %v", err)
	}
	if _, ok := got.Sizing.(domain.Unsized); !ok {
		t.Fatalf("expected Unsized sizing, got %T", got.Sizing)
	}
	if stock, ok := got.StockFor(domain.SizeStandard); !ok || stock != 7 {
		t.Fatalf("unexpected standard stock: %d ok=%v", stock, ok)
	}

	remaining, err := repo.Reserve(product.ID, domain.SizeStandard, 3)
	if err != nil {
		t.Fatalf("reserve unsized: %v", err)
	}
	if remaining != 4 {
		t.Fatalf("expected remaining 4, got %d", remaining)
	}

	if _, err := repo.Reserve(product.ID, "M", 1); !errors.Is(err, domain.ErrSizeNotFound) {
		t.Fatalf("expected ErrSizeNotFound for unsized product, got %v", err)
	}
}

func TestCatalogRepository_PostgresReserveAndRelease(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)

	product := sampleSizedProduct("product-reserve", "SKU-RESERVE")
	if err := repo.Put(product); err != nil {
		t.Fatalf("put product: %v", err)
	}

	remaining, err := repo.Reserve(product.ID, "M", 2)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("expected remaining 3, got %d", remaining)
	}

	_, err = repo.Reserve(product.ID, "M", 10)
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 3 {
		t.Fatalf("expected available 3, got %d", insufficient.Available)
	}

	if _, err := repo.Reserve(product.ID, "XXL", 1); !errors.Is(err, domain.ErrSizeNotFound) {
		t.Fatalf("expected ErrSizeNotFound, got %v", err)
	}
	if _, err := repo.Reserve("missing", "M", 1); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	// Неположительный qty отклоняется до обращения к БД.
	if _, err := repo.Reserve(product.ID, "M", 0); !errors.Is(err, domain.ErrQtyInvalid) {
		t.Fatalf("expected ErrQtyInvalid for zero qty, got %v", err)
	}
	if err := repo.Release(product.ID, "M", -2); !errors.Is(err, domain.ErrQtyInvalid) {
		t.Fatalf("expected ErrQtyInvalid for negative qty, got %v", err)
	}
	got, err := repo.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if stock, _ := got.StockFor("M"); stock != 3 {
		t.Fatalf("expected stock untouched at 3, got %d", stock)
	}

	if err := repo.Release(product.ID, "M", 2); err != nil {
		t.Fatalf("release: %v", err)
	}

	got, err = repo.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("get product after release: %v", err)
	}
	if stock, _ := got.StockFor("M"); stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", stock)
	}
	if got.TotalStock() != 8 {
		t.Fatalf("expected total stock 8, got %d", got.TotalStock())
	}
}

func TestCatalogRepository_PostgresConcurrentReserve(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCatalogRepository(store)

	now := time.Now().UTC().Round(time.Microsecond)
	product := domain.Product{
		ID:         "product-concurrent",
		SKU:        "SKU-CONCURRENT",
		Slug:       "limited-drop",
		Name:       "Limited Drop",
		PriceMinor: 900,
		Sizing:     domain.PerSize{Buckets: []domain.SizeBucket{{Size: "M", Stock: 5}}},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Put(product); err != nil {
		t.Fatalf("put product: %v", err)
	}

	const workers = 20

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Reserve(product.ID, "M", 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		if !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("unexpected reserve error: %v", err)
		}
	}
	if succeeded != 5 {
		t.Fatalf("expected exactly 5 successful reservations, got %d", succeeded)
	}

	got, err := repo.GetProduct(product.ID)
	if err != nil {
		t.Fatalf("get product after concurrent reserve: %v", err)
	}
	if got.TotalStock() != 0 {
		t.Fatalf("expected stock exhausted, got %d", got.TotalStock())
	}
}
