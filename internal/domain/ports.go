package domain

import "time"

// Catalog описывает каталог товаров — внешний коллаборатор ядра.
type Catalog interface {
	// GetProduct возвращает актуальный снимок товара или ErrProductNotFound.
	GetProduct(id string) (Product, error)
}

// Inventory описывает атомарные операции над складскими остатками.
// Reserve — единственная операция ядра, требующая настоящей атомарности
// между конкурентными вызовами: check-and-decrement выполняется как одно
// условное обновление, не как чтение с последующей записью.
type Inventory interface {
	// Reserve уменьшает остаток bucket'а и суммарный остаток товара на qty,
	// только если остатка хватает. Возвращает остаток bucket'а после
	// списания, InsufficientStockError при нехватке, ErrProductNotFound /
	// ErrSizeNotFound при отсутствии товара или размера.
	Reserve(productID, size string, qty int32) (remaining int64, err error)
	// Release безусловно возвращает ранее зарезервированный остаток.
	// Отсутствующий товар или bucket — ошибка целостности данных, она
	// возвращается вызывающему, а не глотается.
	Release(productID, size string, qty int32) error
}

// CartRepository хранит корзины; одна корзина на пользователя, upsert.
type CartRepository interface {
	// Get возвращает корзину пользователя или ErrCartNotFound.
	Get(userID string) (Cart, error)
	// Save сохраняет корзину целиком (создаёт или перезаписывает).
	Save(cart Cart) error
}

// OrderListFilter задаёт параметры админской выборки заказов.
type OrderListFilter struct {
	// Status фильтрует по статусу; пустое значение — без фильтра.
	Status OrderStatus
	// Page нумеруется с 1.
	Page int
	// Limit — размер страницы.
	Limit int
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет новый заказ. Возвращает ошибку, если запись с таким ID уже существует.
	Create(order Order) error
	// Get возвращает заказ по идентификатору или ErrOrderNotFound.
	Get(id string) (Order, error)
	// ListByUser возвращает заказы пользователя, новые первыми.
	ListByUser(userID string, limit int) ([]Order, error)
	// List возвращает заказы по фильтру с пагинацией, новые первыми.
	List(filter OrderListFilter) ([]Order, error)
	// Save применяет обновления к заказу с учётом optimistic locking.
	Save(order Order) error
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository хранит состояние обработки запросов по idempotency-key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, result []byte) error
	MarkFailed(key string, result []byte) error
	DeleteExpired(before time.Time, limit int) (int, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
