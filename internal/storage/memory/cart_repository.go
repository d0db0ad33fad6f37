package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// cartRepositoryInMemory — простая in-memory реализация CartRepository.
// Конкурентные правки одной корзины разрешаются как last-write-wins.
type cartRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Cart
}

// NewCartRepository возвращает in-memory репозиторий корзин.
func NewCartRepository() domain.CartRepository {
	return &cartRepositoryInMemory{
		items: make(map[string]domain.Cart),
	}
}

// Get возвращает корзину пользователя или ErrCartNotFound.
func (r *cartRepositoryInMemory) Get(userID string) (domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.items[userID]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cloneCart(cart), nil
}

// Save перезаписывает корзину целиком (upsert).
func (r *cartRepositoryInMemory) Save(cart domain.Cart) error {
	if cart.UserID == "" {
		return domain.ErrUserRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[cart.UserID] = cloneCart(cart)
	return nil
}

// cloneCart копирует корзину вместе с позициями, чтобы избежать
// непредсказуемых мутаций извне.
func cloneCart(cart domain.Cart) domain.Cart {
	items := make([]domain.CartItem, len(cart.Items))
	copy(items, cart.Items)
	cart.Items = items
	return cart
}

var _ domain.CartRepository = (*cartRepositoryInMemory)(nil)
