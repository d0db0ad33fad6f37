package cart

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/service/catalog"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

func newTestService(t *testing.T, policy MergePolicy) (*Service, *catalog.MockService) {
	t.Helper()

	mock := catalog.NewMockService()
	mock.Put(domain.Product{
		ID:         "hoodie",
		SKU:        "HOODIE-1",
		Name:       "Hoodie",
		PriceMinor: 500,
		Sizing: domain.PerSize{Buckets: []domain.SizeBucket{
			{Size: "M", Stock: 5},
			{Size: "L", Stock: 2},
		}},
	})
	mock.Put(domain.Product{
		ID:         "giftcard",
		SKU:        "GIFT-1",
		Name:       "Gift Card",
		PriceMinor: 1000,
		Sizing:     domain.Unsized{Stock: 100},
	})

	return NewService(mock, memory.NewCartRepository(), policy, nil), mock
}

func TestGetCreatesEmptyCart(t *testing.T) {
	svc, _ := newTestService(t, MergeClamp)

	cart, err := svc.Get("user-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if cart.UserID != "user-1" || len(cart.Items) != 0 || cart.TotalMinor != 0 {
		t.Fatalf("expected fresh empty cart, got %+v", cart)
	}

	if _, err := svc.Get(""); !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
}

func TestAddItemMergesAndRefreshesPrice(t *testing.T) {
	svc, mock := newTestService(t, MergeClamp)

	cart, err := svc.AddItem("user-1", "hoodie", 2, "M")
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Qty != 2 || cart.TotalMinor != 1000 {
		t.Fatalf("unexpected cart after first add: %+v", cart)
	}

	// Цена товара изменилась между добавлениями: merge обновляет снимок.
	product := mock.Products["hoodie"]
	product.PriceMinor = 600
	mock.Put(product)

	cart, err = svc.AddItem("user-1", "hoodie", 1, "M")
	if err != nil {
		t.Fatalf("merge add: %v", err)
	}
	if len(cart.Items) != 1 {
		t.Fatalf("expected merged single item, got %d", len(cart.Items))
	}
	if cart.Items[0].Qty != 3 || cart.Items[0].PriceMinor != 600 {
		t.Fatalf("merge must sum qty and refresh price: %+v", cart.Items[0])
	}
	if cart.TotalMinor != 1800 {
		t.Fatalf("expected total 1800, got %d", cart.TotalMinor)
	}
}

func TestAddItemClampsToAvailable(t *testing.T) {
	svc, _ := newTestService(t, MergeClamp)

	if _, err := svc.AddItem("user-1", "hoodie", 4, "M"); err != nil {
		t.Fatalf("first add: %v", err)
	}

	// 4 + 3 > 5: при политике clamp итог срезается до остатка.
	cart, err := svc.AddItem("user-1", "hoodie", 3, "M")
	if err != nil {
		t.Fatalf("merge add: %v", err)
	}
	if cart.Items[0].Qty != 5 {
		t.Fatalf("expected qty clamped to 5, got %d", cart.Items[0].Qty)
	}
	if cart.TotalMinor != 2500 {
		t.Fatalf("expected total 2500, got %d", cart.TotalMinor)
	}
}

func TestAddItemRejectPolicy(t *testing.T) {
	svc, _ := newTestService(t, MergeReject)

	if _, err := svc.AddItem("user-1", "hoodie", 4, "M"); err != nil {
		t.Fatalf("first add: %v", err)
	}

	_, err := svc.AddItem("user-1", "hoodie", 3, "M")
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 5 {
		t.Fatalf("expected available 5, got %d", insufficient.Available)
	}

	// Корзина не изменилась.
	cart, err := svc.Get("user-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if cart.Items[0].Qty != 4 {
		t.Fatalf("rejected add must not change the cart, got qty %d", cart.Items[0].Qty)
	}
}

func TestAddItemValidation(t *testing.T) {
	svc, _ := newTestService(t, MergeClamp)

	if _, err := svc.AddItem("", "hoodie", 1, "M"); !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if _, err := svc.AddItem("user-1", "hoodie", 0, "M"); !errors.Is(err, domain.ErrQtyInvalid) {
		t.Fatalf("expected ErrQtyInvalid, got %v", err)
	}
	if _, err := svc.AddItem("user-1", "ghost", 1, "M"); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := svc.AddItem("user-1", "hoodie", 1, "XXL"); !errors.Is(err, domain.ErrSizeUnavailable) {
		t.Fatalf("expected ErrSizeUnavailable, got %v", err)
	}
	if _, err := svc.AddItem("user-1", "hoodie", 10, "L"); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected stock error, got %v", err)
	}
}

func TestAddItemResolvesDefaultSize(t *testing.T) {
	svc, _ := newTestService(t, MergeClamp)

	// Для товара без размерной сетки любой размер сводится к Standard.
	cart, err := svc.AddItem("user-1", "giftcard", 1, "")
	if err != nil {
		t.Fatalf("add unsized item: %v", err)
	}
	if cart.Items[0].Size != domain.SizeStandard {
		t.Fatalf("expected size %q, got %q", domain.SizeStandard, cart.Items[0].Size)
	}
}

func TestUpdateItem(t *testing.T) {
	svc, mock := newTestService(t, MergeClamp)

	if _, err := svc.AddItem("user-1", "hoodie", 2, "M"); err != nil {
		t.Fatalf("add item: %v", err)
	}

	product := mock.Products["hoodie"]
	product.PriceMinor = 700
	mock.Put(product)

	cart, err := svc.UpdateItem("user-1", "hoodie", "M", 4)
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if cart.Items[0].Qty != 4 || cart.Items[0].PriceMinor != 700 {
		t.Fatalf("update must set qty and refresh price: %+v", cart.Items[0])
	}
	if cart.TotalMinor != 2800 {
		t.Fatalf("expected total 2800, got %d", cart.TotalMinor)
	}

	if _, err := svc.UpdateItem("user-1", "hoodie", "M", 0); !errors.Is(err, domain.ErrQtyInvalid) {
		t.Fatalf("expected ErrQtyInvalid, got %v", err)
	}
	if _, err := svc.UpdateItem("user-1", "hoodie", "L", 1); !errors.Is(err, domain.ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound, got %v", err)
	}
	if _, err := svc.UpdateItem("user-1", "hoodie", "M", 10); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected stock error, got %v", err)
	}
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t, MergeClamp)

	if _, err := svc.AddItem("user-1", "hoodie", 2, "M"); err != nil {
		t.Fatalf("add item: %v", err)
	}

	cart, err := svc.RemoveItem("user-1", "hoodie", "M")
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalMinor != 0 {
		t.Fatalf("expected empty cart after removal, got %+v", cart)
	}

	// Повторное удаление и удаление из несуществующей корзины — не ошибка.
	if _, err := svc.RemoveItem("user-1", "hoodie", "M"); err != nil {
		t.Fatalf("repeated remove: %v", err)
	}
	if _, err := svc.RemoveItem("user-2", "hoodie", "M"); err != nil {
		t.Fatalf("remove from missing cart: %v", err)
	}
}

func TestGetPrunesOrphanedItems(t *testing.T) {
	svc, mock := newTestService(t, MergeClamp)

	if _, err := svc.AddItem("user-1", "hoodie", 1, "M"); err != nil {
		t.Fatalf("add hoodie: %v", err)
	}
	if _, err := svc.AddItem("user-1", "giftcard", 1, ""); err != nil {
		t.Fatalf("add giftcard: %v", err)
	}

	// Товар удалён из каталога: его позиция выбрасывается при чтении.
	delete(mock.Products, "hoodie")

	cart, err := svc.Get("user-1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ProductID != "giftcard" {
		t.Fatalf("expected orphaned item to be pruned, got %+v", cart.Items)
	}
	if cart.TotalMinor != 1000 {
		t.Fatalf("expected total recalculated to 1000, got %d", cart.TotalMinor)
	}
}

func TestClear(t *testing.T) {
	svc, _ := newTestService(t, MergeClamp)

	if _, err := svc.AddItem("user-1", "hoodie", 2, "M"); err != nil {
		t.Fatalf("add item: %v", err)
	}

	cart, err := svc.Clear("user-1")
	if err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	if len(cart.Items) != 0 || cart.TotalMinor != 0 {
		t.Fatalf("expected empty cart, got %+v", cart)
	}

	if _, err := svc.Clear("user-2"); err != nil {
		t.Fatalf("clear missing cart: %v", err)
	}
}
