package domain

import (
	"errors"
	"fmt"
)

var (
	// Ошибка отсутствующего товара в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// Ошибка отсутствующего size bucket у товара (reserve/release по несуществующему размеру).
	ErrSizeNotFound = errors.New("size bucket not found")
	// Ошибка выбора размера, который товар не предлагает.
	ErrSizeUnavailable = errors.New("size is not available for this product")
	// Ошибка дублирующегося SKU при записи в каталог.
	ErrSKUConflict = errors.New("duplicate sku")
	// Ошибка повторяющегося размера внутри одного товара.
	ErrSizeDuplicate = errors.New("duplicate size within product")
	// Ошибка отрицательного остатка.
	ErrStockNegative = errors.New("stock must be non-negative")
	// Ошибка некорректного количества (< 1).
	ErrQtyInvalid = errors.New("quantity must be at least 1")
	// Ошибка отрицательной цены позиции.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отсутствующего идентификатора пользователя.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка несоответствия суммы позиций и зафиксированной itemsPrice.
	ErrAmountMismatch = errors.New("order amount does not match items sum")

	// ErrCartNotFound возвращается репозиторием, если корзина ещё не создавалась.
	ErrCartNotFound = errors.New("cart not found")
	// ErrCartEmpty — попытка оформить заказ по пустой корзине.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrCartItemNotFound — в корзине нет позиции с такой парой (product, size).
	ErrCartItemNotFound = errors.New("item not found in cart")
	// ErrCartTotalMismatch — totalAmount корзины не равен сумме позиций.
	ErrCartTotalMismatch = errors.New("cart total does not match items sum")
	// ErrCartDuplicateItem — две позиции корзины делят одну пару (product, size).
	ErrCartDuplicateItem = errors.New("duplicate (product, size) pair in cart")

	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrOrderVersionConflict = errors.New("order version conflict")
	// ErrForbidden — запрос к чужому заказу или админская операция без роли admin.
	ErrForbidden = errors.New("not authorized")
	// ErrStatusInvalid — неизвестное значение статуса заказа.
	ErrStatusInvalid = errors.New("unknown order status")
	// ErrInvalidTransition — недопустимый переход статуса заказа.
	ErrInvalidTransition = errors.New("illegal order status transition")

	// ErrInsufficientStock — запрошенное количество превышает доступный остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockExhausted — резервирование при оформлении заказа не удалось.
	ErrStockExhausted = errors.New("stock exhausted")

	// ErrIdempotencyKeyRequired — пустой idempotency-key.
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	// ErrIdempotencyRequestHashRequired — пустой хэш запроса.
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
	// ErrIdempotencyKeyAlreadyExists — ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyKeyNotFound — ключ не найден.
	ErrIdempotencyKeyNotFound = errors.New("idempotency key not found")
	// ErrIdempotencyHashMismatch — тот же ключ с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrCheckoutInProgress — повтор запроса, пока первый ещё обрабатывается.
	ErrCheckoutInProgress = errors.New("checkout with this idempotency key is in progress")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// InsufficientStockError уточняет, сколько единиц доступно в bucket'е.
// Различается по kind через errors.Is(err, ErrInsufficientStock).
type InsufficientStockError struct {
	Size      string
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d items in stock for size %s", e.Available, e.Size)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StockExhaustedError называет первую позицию, по которой не удалось
// зарезервировать остаток при оформлении заказа.
type StockExhaustedError struct {
	ProductName string
	Size        string
}

func (e *StockExhaustedError) Error() string {
	return fmt.Sprintf("stock exhausted for %s (size: %s)", e.ProductName, e.Size)
}

func (e *StockExhaustedError) Unwrap() error { return ErrStockExhausted }

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrOrderVersionConflict)
}

// IsNotFound проверяет, относится ли ошибка к отсутствующей сущности.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrSizeNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrCartItemNotFound)
}
