package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/storage/postgres"
)

// seedProducts описывает демонстрационный каталог.
func seedProducts() []domain.Product {
	now := time.Now().UTC()
	sizes := func(pairs ...domain.SizeBucket) domain.Sizing {
		return domain.PerSize{Buckets: pairs}
	}

	return []domain.Product{
		{
			ID:         uuid.NewString(),
			SKU:        "HOODIE-CLASSIC",
			Slug:       "classic-hoodie",
			Name:       "Classic Hoodie",
			ImageURL:   "/images/classic-hoodie.jpg",
			PriceMinor: 500,
			Sizing: sizes(
				domain.SizeBucket{Size: "S", Stock: 10},
				domain.SizeBucket{Size: "M", Stock: 15},
				domain.SizeBucket{Size: "L", Stock: 8},
			),
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:         uuid.NewString(),
			SKU:        "TEE-LOGO",
			Slug:       "logo-tee",
			Name:       "Logo Tee",
			ImageURL:   "/images/logo-tee.jpg",
			PriceMinor: 250,
			Sizing: sizes(
				domain.SizeBucket{Size: "M", Stock: 30},
				domain.SizeBucket{Size: "L", Stock: 20},
				domain.SizeBucket{Size: "XL", Stock: 12},
			),
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:         uuid.NewString(),
			SKU:        "GIFT-CARD-10",
			Slug:       "gift-card",
			Name:       "Gift Card",
			ImageURL:   "/images/gift-card.jpg",
			PriceMinor: 1000,
			Sizing:     domain.Unsized{Stock: 100},
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
}

func main() {
	var dsn string
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: CHECKOUT_POSTGRES_DSN)")
	flag.Parse()

	_ = godotenv.Load()

	if strings.TrimSpace(dsn) == "" {
		dsn = strings.TrimSpace(os.Getenv("CHECKOUT_POSTGRES_DSN"))
	}
	if dsn == "" {
		fail("CHECKOUT_POSTGRES_DSN (or -dsn) is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.Open(ctx, dsn)
	if err != nil {
		fail("open postgres store: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		fail("ensure schema: %v", err)
	}

	repo := postgres.NewCatalogRepository(store)
	seeded := 0
	for _, product := range seedProducts() {
		if err := repo.Put(product); err != nil {
			if errors.Is(err, domain.ErrSKUConflict) {
				fmt.Printf("skip %s: SKU already present\n", product.SKU)
				continue
			}
			fail("seed product %s: %v", product.SKU, err)
		}
		seeded++
		fmt.Printf("seeded %s (%s)\n", product.SKU, product.Name)
	}

	fmt.Printf("seed complete: %d products\n", seeded)
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
