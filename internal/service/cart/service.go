// Package cart реализует операции над корзиной пользователя: чтение с
// ленивой чисткой осиротевших позиций, добавление с merge по паре
// (товар, размер), обновление, удаление и очистку.
package cart

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// MergePolicy определяет поведение add-with-merge при превышении остатка.
type MergePolicy int

const (
	// MergeClamp срезает итоговое количество до доступного остатка
	// (поведение исходной системы).
	MergeClamp MergePolicy = iota
	// MergeReject отклоняет добавление, если суммарное количество
	// превысило бы остаток.
	MergeReject
)

// Service реализует операции корзины поверх каталога и репозитория.
// Проверка остатка здесь носит advisory-характер: окончательное слово
// остаётся за резервированием при оформлении заказа.
type Service struct {
	catalog domain.Catalog
	carts   domain.CartRepository
	policy  MergePolicy
	logger  *log.Entry
}

// NewService конструирует сервис корзины.
func NewService(catalog domain.Catalog, carts domain.CartRepository, policy MergePolicy, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "cart-service")
	}
	return &Service{
		catalog: catalog,
		carts:   carts,
		policy:  policy,
		logger:  logger,
	}
}

// Get возвращает корзину пользователя, создавая пустую при первом
// обращении. Позиции с удалёнными из каталога товарами выбрасываются,
// totalAmount пересчитывается, изменённая корзина сохраняется.
func (s *Service) Get(userID string) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	cart, err := s.carts.Get(userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		cart = domain.NewCart(userID)
		if err := s.carts.Save(cart); err != nil {
			return domain.Cart{}, fmt.Errorf("create cart: %w", err)
		}
		return cart, nil
	}
	if err != nil {
		return domain.Cart{}, err
	}

	pruned := cart.Prune(func(productID string) bool {
		_, err := s.catalog.GetProduct(productID)
		return !errors.Is(err, domain.ErrProductNotFound)
	})
	if pruned {
		s.logger.WithField("user_id", userID).Debug("dropped orphaned cart items")
		if err := s.carts.Save(cart); err != nil {
			return domain.Cart{}, fmt.Errorf("save pruned cart: %w", err)
		}
	}

	return cart, nil
}

// AddItem кладёт qty единиц товара в корзину. Размер сверяется с размерной
// сеткой товара, количество — с остатком bucket'а; цена позиции всегда
// снимается с живого товара заново.
func (s *Service) AddItem(userID, productID string, qty int32, size string) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	if qty < 1 {
		return domain.Cart{}, domain.ErrQtyInvalid
	}

	product, err := s.catalog.GetProduct(productID)
	if err != nil {
		return domain.Cart{}, err
	}

	size = product.ResolveSize(size)
	available, ok := product.StockFor(size)
	if !ok {
		return domain.Cart{}, fmt.Errorf("size %q: %w", size, domain.ErrSizeUnavailable)
	}
	if int64(qty) > available {
		return domain.Cart{}, &domain.InsufficientStockError{Size: size, Available: available}
	}

	cart, err := s.carts.Get(userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		cart = domain.NewCart(userID)
	} else if err != nil {
		return domain.Cart{}, err
	}

	if s.policy == MergeReject {
		if idx := cart.FindItem(productID, size); idx >= 0 {
			if int64(cart.Items[idx].Qty)+int64(qty) > available {
				return domain.Cart{}, &domain.InsufficientStockError{Size: size, Available: available}
			}
		}
	}

	cart.MergeItem(domain.CartItem{
		ProductID:  productID,
		Size:       size,
		Qty:        qty,
		PriceMinor: product.PriceMinor,
	}, available)

	if err := s.carts.Save(cart); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

// UpdateItem выставляет количество существующей позиции, заново проверяя
// размер и остаток и обновляя снимок цены.
func (s *Service) UpdateItem(userID, productID, size string, qty int32) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}
	if qty < 1 {
		return domain.Cart{}, domain.ErrQtyInvalid
	}

	cart, err := s.carts.Get(userID)
	if err != nil {
		return domain.Cart{}, err
	}
	if cart.FindItem(productID, size) < 0 {
		return domain.Cart{}, domain.ErrCartItemNotFound
	}

	product, err := s.catalog.GetProduct(productID)
	if err != nil {
		return domain.Cart{}, err
	}

	available, ok := product.StockFor(size)
	if !ok {
		return domain.Cart{}, fmt.Errorf("size %q: %w", size, domain.ErrSizeUnavailable)
	}
	if int64(qty) > available {
		return domain.Cart{}, &domain.InsufficientStockError{Size: size, Available: available}
	}

	if err := cart.SetItemQty(productID, size, qty, product.PriceMinor); err != nil {
		return domain.Cart{}, err
	}

	if err := s.carts.Save(cart); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

// RemoveItem убирает позицию из корзины. Операция идемпотентна: отсутствие
// позиции или самой корзины — не ошибка.
func (s *Service) RemoveItem(userID, productID, size string) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	cart, err := s.carts.Get(userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.NewCart(userID), nil
	}
	if err != nil {
		return domain.Cart{}, err
	}

	if !cart.RemoveItem(productID, size) {
		return cart, nil
	}

	if err := s.carts.Save(cart); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}

// Clear опустошает корзину пользователя; вызывается после успешного
// оформления заказа.
func (s *Service) Clear(userID string) (domain.Cart, error) {
	if userID == "" {
		return domain.Cart{}, domain.ErrUserRequired
	}

	cart, err := s.carts.Get(userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		cart = domain.NewCart(userID)
	} else if err != nil {
		return domain.Cart{}, err
	}

	cart.Clear()
	if err := s.carts.Save(cart); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}
	return cart, nil
}
