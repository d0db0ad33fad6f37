package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestInsufficientStockErrorUnwrapsToKind(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &domain.InsufficientStockError{Size: "M", Available: 2})

	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatal("expected errors.Is to match ErrInsufficientStock")
	}

	var typed *domain.InsufficientStockError
	if !errors.As(err, &typed) {
		t.Fatal("expected errors.As to recover the typed error")
	}
	if typed.Available != 2 {
		t.Fatalf("unexpected available: %d", typed.Available)
	}
	if typed.Error() != "only 2 items in stock for size M" {
		t.Fatalf("unexpected message: %s", typed.Error())
	}
}

func TestStockExhaustedErrorUnwrapsToKind(t *testing.T) {
	err := &domain.StockExhaustedError{ProductName: "Classic Hoodie", Size: "M"}

	if !errors.Is(err, domain.ErrStockExhausted) {
		t.Fatal("expected errors.Is to match ErrStockExhausted")
	}
	if err.Error() != "stock exhausted for Classic Hoodie (size: M)" {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestIsVersionConflict(t *testing.T) {
	wrapped := fmt.Errorf("save order: %w", domain.ErrOrderVersionConflict)
	if !domain.IsVersionConflict(wrapped) {
		t.Fatal("expected version conflict to be recognized through wrapping")
	}
	if domain.IsVersionConflict(domain.ErrOrderNotFound) {
		t.Fatal("unexpected version conflict match")
	}
}

func TestIsNotFound(t *testing.T) {
	for _, err := range []error{
		domain.ErrProductNotFound,
		domain.ErrSizeNotFound,
		domain.ErrOrderNotFound,
		domain.ErrCartNotFound,
		domain.ErrCartItemNotFound,
	} {
		if !domain.IsNotFound(fmt.Errorf("op: %w", err)) {
			t.Fatalf("expected %v to be treated as not found", err)
		}
	}
	if domain.IsNotFound(domain.ErrForbidden) {
		t.Fatal("forbidden is not a not-found error")
	}
}
