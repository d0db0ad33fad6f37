package catalog

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// MockService — конфигурируемая заглушка Catalog для тестов: отдаёт
// заранее заданные товары и позволяет подменить ошибку ответа.
type MockService struct {
	mu sync.Mutex

	Products map[string]domain.Product
	GetErr   error

	GetCalls int
}

// NewMockService возвращает mock с пустым каталогом.
func NewMockService() *MockService {
	return &MockService{Products: make(map[string]domain.Product)}
}

// Put добавляет товар в заглушку.
func (m *MockService) Put(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Products[p.ID] = p
}

// GetProduct возвращает настроенную ошибку либо товар из заглушки.
func (m *MockService) GetProduct(id string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GetCalls++
	if m.GetErr != nil {
		return domain.Product{}, m.GetErr
	}

	p, ok := m.Products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

var _ domain.Catalog = (*MockService)(nil)
