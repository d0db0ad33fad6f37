package domain

import "time"

// CartItem — одна позиция корзины с ценой, зафиксированной в момент
// добавления. Пара (ProductID, Size) уникальна в пределах корзины.
type CartItem struct {
	ProductID  string
	Size       string
	Qty        int32
	PriceMinor int64
}

// Cart — корзина одного пользователя. Все мутации позиций проходят через
// методы агрегата, чтобы totalAmount и уникальность пар не разъезжались.
type Cart struct {
	UserID     string
	Items      []CartItem
	TotalMinor int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewCart создаёт пустую корзину пользователя.
func NewCart(userID string) Cart {
	now := time.Now().UTC()
	return Cart{
		UserID:    userID,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// FindItem возвращает индекс позиции с парой (productID, size) или -1.
func (c *Cart) FindItem(productID, size string) int {
	for i, item := range c.Items {
		if item.ProductID == productID && item.Size == size {
			return i
		}
	}
	return -1
}

// Recalculate пересчитывает totalAmount по позициям. Вызывается каждым
// мутирующим методом, внешним вызовам нужен только после ручной правки Items.
func (c *Cart) Recalculate() {
	var total int64
	for _, item := range c.Items {
		total += int64(item.Qty) * item.PriceMinor
	}
	c.TotalMinor = total
}

// MergeItem добавляет позицию или суммирует количество с уже существующей
// парой (product, size). Итоговое количество срезается до available, цена
// позиции всегда обновляется до переданного snapshot'а.
func (c *Cart) MergeItem(item CartItem, available int64) {
	idx := c.FindItem(item.ProductID, item.Size)
	if idx < 0 {
		c.Items = append(c.Items, item)
		idx = len(c.Items) - 1
	} else {
		c.Items[idx].Qty += item.Qty
		c.Items[idx].PriceMinor = item.PriceMinor
	}

	if int64(c.Items[idx].Qty) > available {
		c.Items[idx].Qty = int32(available)
	}

	c.Recalculate()
	c.UpdatedAt = time.Now().UTC()
}

// SetItemQty выставляет количество и свежую цену существующей позиции.
func (c *Cart) SetItemQty(productID, size string, qty int32, priceMinor int64) error {
	idx := c.FindItem(productID, size)
	if idx < 0 {
		return ErrCartItemNotFound
	}

	c.Items[idx].Qty = qty
	c.Items[idx].PriceMinor = priceMinor
	c.Recalculate()
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// RemoveItem удаляет позицию, если она есть. Повторный вызов — no-op.
func (c *Cart) RemoveItem(productID, size string) bool {
	idx := c.FindItem(productID, size)
	if idx < 0 {
		return false
	}

	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.Recalculate()
	c.UpdatedAt = time.Now().UTC()
	return true
}

// Clear опустошает корзину и обнуляет сумму. Сама корзина не удаляется.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.TotalMinor = 0
	c.UpdatedAt = time.Now().UTC()
}

// Prune выбрасывает позиции, для которых keep вернул false (товар удалён из
// каталога). Возвращает true, если состав изменился.
func (c *Cart) Prune(keep func(productID string) bool) bool {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if keep(item.ProductID) {
			kept = append(kept, item)
		}
	}

	if len(kept) == len(c.Items) {
		return false
	}

	c.Items = kept
	c.Recalculate()
	c.UpdatedAt = time.Now().UTC()
	return true
}

// ValidateInvariants проверяет инварианты корзины: уникальность пар
// (product, size), количество >= 1 и соответствие totalAmount сумме позиций.
func (c *Cart) ValidateInvariants() []error {
	var errs []error

	if c.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}

	seen := make(map[[2]string]struct{}, len(c.Items))
	var calc int64
	for _, item := range c.Items {
		key := [2]string{item.ProductID, item.Size}
		if _, dup := seen[key]; dup {
			errs = append(errs, ErrCartDuplicateItem)
		}
		seen[key] = struct{}{}

		if item.Qty < 1 {
			errs = append(errs, ErrQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != c.TotalMinor {
		errs = append(errs, ErrCartTotalMismatch)
	}

	return errs
}
