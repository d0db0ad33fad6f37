package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestCartRepository_PostgresSaveAndGet(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewCartRepository(store)

	if _, err := repo.Get("user-1"); !errors.Is(err, domain.ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}

	now := time.Now().UTC().Round(time.Microsecond)
	cart := domain.Cart{
		UserID: "user-1",
		Items: []domain.CartItem{
			{ProductID: "product-1", Size: "M", Qty: 2, PriceMinor: 500},
			{ProductID: "product-2", Size: domain.SizeStandard, Qty: 1, PriceMinor: 300},
		},
		TotalMinor: 1300,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Save(cart); err != nil {
		t.Fatalf("save cart: %v", err)
	}

	got, err := repo.Get("user-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if got.TotalMinor != 1300 || len(got.Items) != 2 {
		t.Fatalf("unexpected cart: %+v", got)
	}
	if got.Items[0].ProductID != "product-1" || got.Items[1].ProductID != "product-2" {
		t.Fatalf("item order is not preserved: %+v", got.Items)
	}

	cart.Clear()
	if err := repo.Save(cart); err != nil {
		t.Fatalf("save cleared cart: %v", err)
	}

	got, err = repo.Get("user-1")
	if err != nil {
		t.Fatalf("get cleared cart: %v", err)
	}
	if len(got.Items) != 0 || got.TotalMinor != 0 {
		t.Fatalf("expected empty cart, got %+v", got)
	}
}
