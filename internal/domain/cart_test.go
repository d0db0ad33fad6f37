package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestMergeItemAddsAndMerges(t *testing.T) {
	cart := domain.NewCart("user-1")

	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "M", Qty: 2, PriceMinor: 500}, 10)
	if len(cart.Items) != 1 || cart.TotalMinor != 1000 {
		t.Fatalf("unexpected cart after first add: %+v", cart)
	}

	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "M", Qty: 3, PriceMinor: 400}, 10)
	if len(cart.Items) != 1 {
		t.Fatalf("expected merged item, got %d items", len(cart.Items))
	}
	if cart.Items[0].Qty != 5 {
		t.Fatalf("expected qty 5 after merge, got %d", cart.Items[0].Qty)
	}
	// Цена позиции всегда обновляется до свежего снимка.
	if cart.Items[0].PriceMinor != 400 {
		t.Fatalf("expected refreshed price 400, got %d", cart.Items[0].PriceMinor)
	}
	if cart.TotalMinor != 2000 {
		t.Fatalf("unexpected total: %d", cart.TotalMinor)
	}

	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "L", Qty: 1, PriceMinor: 400}, 10)
	if len(cart.Items) != 2 {
		t.Fatalf("different size must be a separate item, got %d items", len(cart.Items))
	}
}

func TestMergeItemClampsToAvailable(t *testing.T) {
	cart := domain.NewCart("user-1")

	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "M", Qty: 4, PriceMinor: 100}, 5)
	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "M", Qty: 4, PriceMinor: 100}, 5)

	if cart.Items[0].Qty != 5 {
		t.Fatalf("expected qty clamped to 5, got %d", cart.Items[0].Qty)
	}
	if cart.TotalMinor != 500 {
		t.Fatalf("total must follow the clamp, got %d", cart.TotalMinor)
	}
}

func TestSetItemQty(t *testing.T) {
	cart := domain.NewCart("user-1")
	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "M", Qty: 2, PriceMinor: 500}, 10)

	if err := cart.SetItemQty("p1", "M", 4, 450); err != nil {
		t.Fatalf("set qty: %v", err)
	}
	if cart.Items[0].Qty != 4 || cart.Items[0].PriceMinor != 450 {
		t.Fatalf("unexpected item after update: %+v", cart.Items[0])
	}
	if cart.TotalMinor != 1800 {
		t.Fatalf("unexpected total: %d", cart.TotalMinor)
	}

	if err := cart.SetItemQty("p1", "L", 1, 450); err != domain.ErrCartItemNotFound {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	cart := domain.NewCart("user-1")
	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "M", Qty: 1, PriceMinor: 500}, 10)

	if !cart.RemoveItem("p1", "M") {
		t.Fatal("expected removal to report true")
	}
	if cart.RemoveItem("p1", "M") {
		t.Fatal("repeated removal must be a no-op")
	}
	if len(cart.Items) != 0 || cart.TotalMinor != 0 {
		t.Fatalf("unexpected cart after removal: %+v", cart)
	}
}

func TestClear(t *testing.T) {
	cart := domain.NewCart("user-1")
	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "M", Qty: 2, PriceMinor: 500}, 10)

	cart.Clear()

	if len(cart.Items) != 0 || cart.TotalMinor != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestPruneDropsOrphanedItems(t *testing.T) {
	cart := domain.NewCart("user-1")
	cart.MergeItem(domain.CartItem{ProductID: "alive", Size: "M", Qty: 1, PriceMinor: 100}, 10)
	cart.MergeItem(domain.CartItem{ProductID: "deleted", Size: "M", Qty: 2, PriceMinor: 200}, 10)

	changed := cart.Prune(func(productID string) bool { return productID == "alive" })
	if !changed {
		t.Fatal("expected prune to report a change")
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != "alive" {
		t.Fatalf("unexpected items after prune: %+v", cart.Items)
	}
	if cart.TotalMinor != 100 {
		t.Fatalf("total must be recalculated, got %d", cart.TotalMinor)
	}

	if cart.Prune(func(string) bool { return true }) {
		t.Fatal("prune without casualties must report false")
	}
}

func TestCartValidateInvariants(t *testing.T) {
	cart := domain.NewCart("user-1")
	cart.MergeItem(domain.CartItem{ProductID: "p1", Size: "M", Qty: 2, PriceMinor: 500}, 10)
	if errs := cart.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected valid cart, got %v", errs)
	}

	broken := cart
	broken.Items = []domain.CartItem{
		{ProductID: "p1", Size: "M", Qty: 1, PriceMinor: 100},
		{ProductID: "p1", Size: "M", Qty: 1, PriceMinor: 100},
	}
	broken.TotalMinor = 200
	errs := broken.ValidateInvariants()
	if len(errs) == 0 {
		t.Fatal("expected duplicate pair violation")
	}

	mismatch := domain.NewCart("user-1")
	mismatch.Items = []domain.CartItem{{ProductID: "p1", Size: "M", Qty: 1, PriceMinor: 100}}
	mismatch.TotalMinor = 1
	found := false
	for _, err := range mismatch.ValidateInvariants() {
		if err == domain.ErrCartTotalMismatch {
			found = true
		}
	}
	if !found {
		t.Fatal("expected ErrCartTotalMismatch")
	}
}
