package memory

import (
	"fmt"
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// ProductStore — in-memory каталог с остатками. Реализует и domain.Catalog,
// и domain.Inventory: mutex делает check-and-decrement в Reserve единой
// атомарной операцией, как того требует контракт резервирования.
type ProductStore struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	bySKU    map[string]string
}

// NewProductStore возвращает пустой in-memory каталог для локальной
// разработки и тестов.
func NewProductStore() *ProductStore {
	return &ProductStore{
		products: make(map[string]domain.Product),
		bySKU:    make(map[string]string),
	}
}

// Put сохраняет товар, проверяя уникальность SKU.
func (s *ProductStore) Put(p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ownerID, exists := s.bySKU[p.SKU]; exists && ownerID != p.ID {
		return fmt.Errorf("sku %q: %w", p.SKU, domain.ErrSKUConflict)
	}
	if prev, exists := s.products[p.ID]; exists && prev.SKU != p.SKU {
		delete(s.bySKU, prev.SKU)
	}

	s.products[p.ID] = cloneProduct(p)
	s.bySKU[p.SKU] = p.ID
	return nil
}

// Delete удаляет товар из каталога. Используется тестами и сценарием
// lazily-pruned корзин.
func (s *ProductStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.products[id]; ok {
		delete(s.bySKU, p.SKU)
		delete(s.products, id)
	}
}

// GetProduct возвращает копию товара или ErrProductNotFound.
func (s *ProductStore) GetProduct(id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

// Reserve атомарно списывает qty из bucket'а, если остатка хватает.
func (s *ProductStore) Reserve(productID, size string, qty int32) (int64, error) {
	if qty < 1 {
		return 0, domain.ErrQtyInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return 0, domain.ErrProductNotFound
	}

	switch sz := p.Sizing.(type) {
	case domain.PerSize:
		idx := bucketIndex(sz.Buckets, size)
		if idx < 0 {
			return 0, domain.ErrSizeNotFound
		}
		if sz.Buckets[idx].Stock < int64(qty) {
			return 0, &domain.InsufficientStockError{Size: size, Available: sz.Buckets[idx].Stock}
		}
		sz.Buckets[idx].Stock -= int64(qty)
		p.Sizing = sz
		s.products[productID] = p
		return sz.Buckets[idx].Stock, nil
	case domain.Unsized:
		if size != domain.SizeStandard {
			return 0, domain.ErrSizeNotFound
		}
		if sz.Stock < int64(qty) {
			return 0, &domain.InsufficientStockError{Size: size, Available: sz.Stock}
		}
		sz.Stock -= int64(qty)
		p.Sizing = sz
		s.products[productID] = p
		return sz.Stock, nil
	default:
		return 0, domain.ErrSizeNotFound
	}
}

// Release безусловно возвращает qty в bucket. Отсутствующий товар или
// размер — ошибка целостности, её решает вызывающий.
func (s *ProductStore) Release(productID, size string, qty int32) error {
	if qty < 1 {
		return domain.ErrQtyInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}

	switch sz := p.Sizing.(type) {
	case domain.PerSize:
		idx := bucketIndex(sz.Buckets, size)
		if idx < 0 {
			return domain.ErrSizeNotFound
		}
		sz.Buckets[idx].Stock += int64(qty)
		p.Sizing = sz
		s.products[productID] = p
		return nil
	case domain.Unsized:
		if size != domain.SizeStandard {
			return domain.ErrSizeNotFound
		}
		sz.Stock += int64(qty)
		p.Sizing = sz
		s.products[productID] = p
		return nil
	default:
		return domain.ErrSizeNotFound
	}
}

func bucketIndex(buckets []domain.SizeBucket, size string) int {
	for i, b := range buckets {
		if b.Size == size {
			return i
		}
	}
	return -1
}

// cloneProduct копирует товар вместе с bucket'ами, чтобы избежать
// непредсказуемых мутаций извне.
func cloneProduct(p domain.Product) domain.Product {
	if sz, ok := p.Sizing.(domain.PerSize); ok {
		buckets := make([]domain.SizeBucket, len(sz.Buckets))
		copy(buckets, sz.Buckets)
		p.Sizing = domain.PerSize{Buckets: buckets}
	}
	return p
}

var (
	_ domain.Catalog   = (*ProductStore)(nil)
	_ domain.Inventory = (*ProductStore)(nil)
)
