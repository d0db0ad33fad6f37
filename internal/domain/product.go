package domain

import "time"

// SizeStandard — размер по умолчанию для товаров без размерной сетки.
const SizeStandard = "Standard"

// Sizing описывает схему хранения остатков товара: либо remainder по каждому
// размеру, либо единый счётчик для товаров без размерной сетки.
type Sizing interface {
	// TotalStock возвращает суммарный остаток по всем bucket'ам.
	TotalStock() int64
	// StockFor возвращает остаток названного bucket'а и признак его существования.
	StockFor(size string) (int64, bool)

	sizing()
}

// SizeBucket — счётчик остатка для одной пары (товар, размер).
type SizeBucket struct {
	Size  string
	Stock int64
}

// PerSize — размерная сетка: упорядоченные bucket'ы с уникальными размерами.
type PerSize struct {
	Buckets []SizeBucket
}

func (s PerSize) TotalStock() int64 {
	var total int64
	for _, b := range s.Buckets {
		total += b.Stock
	}
	return total
}

func (s PerSize) StockFor(size string) (int64, bool) {
	for _, b := range s.Buckets {
		if b.Size == size {
			return b.Stock, true
		}
	}
	return 0, false
}

func (PerSize) sizing() {}

// Unsized — legacy-товар с единственным счётчиком остатка.
// Наружу он виден как один bucket с размером SizeStandard.
type Unsized struct {
	Stock int64
}

func (s Unsized) TotalStock() int64 { return s.Stock }

func (s Unsized) StockFor(size string) (int64, bool) {
	if size == SizeStandard {
		return s.Stock, true
	}
	return 0, false
}

func (Unsized) sizing() {}

// Product — read-only снимок товара из каталога. Ядро мутирует только
// остатки, и делает это через Inventory, а не через эту структуру.
type Product struct {
	ID         string
	SKU        string
	Slug       string
	Name       string
	ImageURL   string
	PriceMinor int64
	Sizing     Sizing
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TotalStock возвращает суммарный остаток товара. Значение всегда равно
// сумме остатков bucket'ов: отдельного денормализованного поля в домене нет.
func (p *Product) TotalStock() int64 {
	if p.Sizing == nil {
		return 0
	}
	return p.Sizing.TotalStock()
}

// StockFor возвращает остаток для размера; для Unsized существует только
// SizeStandard.
func (p *Product) StockFor(size string) (int64, bool) {
	if p.Sizing == nil {
		return 0, false
	}
	return p.Sizing.StockFor(size)
}

// ResolveSize нормализует запрошенный размер: для товаров без размерной
// сетки всегда SizeStandard, для остальных — пустое значение заменяется
// размером по умолчанию.
func (p *Product) ResolveSize(size string) string {
	if _, ok := p.Sizing.(Unsized); ok || p.Sizing == nil {
		return SizeStandard
	}
	if size == "" {
		return SizeStandard
	}
	return size
}

// ValidateInvariants проверяет целостность снимка товара.
func (p *Product) ValidateInvariants() []error {
	var errs []error

	if p.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}

	switch s := p.Sizing.(type) {
	case PerSize:
		seen := make(map[string]struct{}, len(s.Buckets))
		for _, b := range s.Buckets {
			if _, dup := seen[b.Size]; dup {
				errs = append(errs, ErrSizeDuplicate)
			}
			seen[b.Size] = struct{}{}
			if b.Stock < 0 {
				errs = append(errs, ErrStockNegative)
			}
		}
	case Unsized:
		if s.Stock < 0 {
			errs = append(errs, ErrStockNegative)
		}
	}

	return errs
}
