package domain_test

import (
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func makeSizedProduct() domain.Product {
	return domain.Product{
		ID:         "product-1",
		SKU:        "SKU-1",
		Name:       "Classic Hoodie",
		PriceMinor: 500,
		Sizing: domain.PerSize{Buckets: []domain.SizeBucket{
			{Size: "M", Stock: 5},
			{Size: "L", Stock: 3},
		}},
	}
}

func TestProductTotalStock(t *testing.T) {
	product := makeSizedProduct()
	if product.TotalStock() != 8 {
		t.Fatalf("expected total 8, got %d", product.TotalStock())
	}

	unsized := domain.Product{Sizing: domain.Unsized{Stock: 7}}
	if unsized.TotalStock() != 7 {
		t.Fatalf("expected total 7, got %d", unsized.TotalStock())
	}

	var empty domain.Product
	if empty.TotalStock() != 0 {
		t.Fatalf("nil sizing must yield 0, got %d", empty.TotalStock())
	}
}

func TestProductStockFor(t *testing.T) {
	product := makeSizedProduct()

	if stock, ok := product.StockFor("L"); !ok || stock != 3 {
		t.Fatalf("unexpected stock for L: %d ok=%v", stock, ok)
	}
	if _, ok := product.StockFor("XXL"); ok {
		t.Fatal("unknown size must not exist")
	}

	unsized := domain.Product{Sizing: domain.Unsized{Stock: 7}}
	if stock, ok := unsized.StockFor(domain.SizeStandard); !ok || stock != 7 {
		t.Fatalf("unexpected standard stock: %d ok=%v", stock, ok)
	}
	if _, ok := unsized.StockFor("M"); ok {
		t.Fatal("unsized product exposes only the standard size")
	}
}

func TestResolveSize(t *testing.T) {
	sized := makeSizedProduct()
	if got := sized.ResolveSize("L"); got != "L" {
		t.Fatalf("expected L, got %s", got)
	}
	if got := sized.ResolveSize(""); got != domain.SizeStandard {
		t.Fatalf("empty size must default to %s, got %s", domain.SizeStandard, got)
	}

	unsized := domain.Product{Sizing: domain.Unsized{Stock: 1}}
	if got := unsized.ResolveSize("XL"); got != domain.SizeStandard {
		t.Fatalf("unsized product must resolve any size to %s, got %s", domain.SizeStandard, got)
	}
}

func TestProductValidateInvariants(t *testing.T) {
	product := makeSizedProduct()
	if errs := product.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected valid product, got %v", errs)
	}

	dup := product
	dup.Sizing = domain.PerSize{Buckets: []domain.SizeBucket{
		{Size: "M", Stock: 1},
		{Size: "M", Stock: 2},
	}}
	if errs := dup.ValidateInvariants(); len(errs) == 0 || errs[0] != domain.ErrSizeDuplicate {
		t.Fatalf("expected ErrSizeDuplicate, got %v", errs)
	}

	negative := product
	negative.Sizing = domain.Unsized{Stock: -1}
	if errs := negative.ValidateInvariants(); len(errs) == 0 || errs[0] != domain.ErrStockNegative {
		t.Fatalf("expected ErrStockNegative, got %v", errs)
	}

	badPrice := product
	badPrice.PriceMinor = -5
	if errs := badPrice.ValidateInvariants(); len(errs) == 0 || errs[0] != domain.ErrItemPriceInvalid {
		t.Fatalf("expected ErrItemPriceInvalid, got %v", errs)
	}
}
