// Package order оркестрирует жизненный цикл заказа: конвертацию корзины в
// заказ с атомарным резервированием остатков, отмену с компенсирующим
// возвратом остатков и админские операции над статусом.
package order

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/pricing"
)

const (
	timelineEventOrderCreated       = "OrderCreated"
	timelineEventOrderCancelled     = "OrderCancelled"
	timelineEventOrderStatusChanged = "OrderStatusChanged"

	defaultIdempotencyTTL = 24 * time.Hour
)

// CreateOrderInput — параметры оформления заказа.
type CreateOrderInput struct {
	ShippingAddress domain.ShippingAddress
	PaymentMethod   domain.PaymentMethod
	ShippingMethod  domain.ShippingMethod
	// IdempotencyKey опционально дедуплицирует повторы запроса.
	IdempotencyKey string
}

// Options настраивает поведение сервиса.
type Options struct {
	// StrictTransitions включает проверку forward-only переходов в
	// UpdateStatus. По умолчанию админ может выставить любой статус.
	StrictTransitions bool
	// Pricing — ставки ценового движка.
	Pricing pricing.Config
}

// Service реализует операции жизненного цикла заказа.
type Service struct {
	catalog   domain.Catalog
	inventory domain.Inventory
	carts     domain.CartRepository
	orders    domain.OrderRepository
	timeline  domain.TimelineRepository
	outbox    domain.OutboxRepository
	idem      domain.IdempotencyRepository

	opts    Options
	logger  *log.Entry
	metrics *metrics.CheckoutMetrics
}

// NewService конструирует сервис с зависимостями. timeline, outbox и idem
// опциональны: nil отключает соответствующую функциональность.
func NewService(
	catalog domain.Catalog,
	inventory domain.Inventory,
	carts domain.CartRepository,
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	idem domain.IdempotencyRepository,
	opts Options,
	logger *log.Entry,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "order-service")
	}
	if opts.Pricing == (pricing.Config{}) {
		opts.Pricing = pricing.DefaultConfig()
	}
	return &Service{
		catalog:   catalog,
		inventory: inventory,
		carts:     carts,
		orders:    orders,
		timeline:  timeline,
		outbox:    outbox,
		idem:      idem,
		opts:      opts,
		logger:    logger,
		metrics:   metrics.NewCheckoutMetrics(),
	}
}

// NewServiceWithoutMetrics создаёт сервис без метрик (для тестов).
func NewServiceWithoutMetrics(
	catalog domain.Catalog,
	inventory domain.Inventory,
	carts domain.CartRepository,
	orders domain.OrderRepository,
	timeline domain.TimelineRepository,
	outbox domain.OutboxRepository,
	idem domain.IdempotencyRepository,
	opts Options,
	logger *log.Entry,
) *Service {
	svc := NewService(catalog, inventory, carts, orders, timeline, outbox, idem, opts, logger)
	svc.metrics = nil
	return svc
}

// reservedItem запоминает успешно списанный резерв для отката.
type reservedItem struct {
	productID string
	size      string
	qty       int32
}

// Create конвертирует корзину пользователя в заказ. Резервирование идёт
// позиция за позицией; первый отказ откатывает уже списанные резервы и
// прерывает операцию целиком. Ошибка сохранения заказа после успешного
// резервирования идёт по тому же компенсационному пути.
func (s *Service) Create(userID string, in CreateOrderInput) (domain.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordCheckoutStarted()
	}
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordCheckoutFinished()
			s.metrics.RecordCheckoutDuration(time.Since(start))
		}
	}()

	if userID == "" {
		return domain.Order{}, domain.ErrUserRequired
	}

	if in.IdempotencyKey != "" {
		if order, done, err := s.beginIdempotent(userID, in); done || err != nil {
			return order, err
		}
	}

	order, err := s.create(userID, in)
	if in.IdempotencyKey != "" {
		s.finishIdempotent(in.IdempotencyKey, order, err)
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordCheckoutFailed()
		}
		return domain.Order{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
	}
	return order, nil
}

func (s *Service) create(userID string, in CreateOrderInput) (domain.Order, error) {
	cart, err := s.carts.Get(userID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.Order{}, domain.ErrCartEmpty
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return domain.Order{}, domain.ErrCartEmpty
	}

	now := time.Now().UTC()
	reserved := make([]reservedItem, 0, len(cart.Items))
	orderItems := make([]domain.OrderItem, 0, len(cart.Items))
	lines := make([]pricing.Line, 0, len(cart.Items))

	for _, item := range cart.Items {
		product, err := s.catalog.GetProduct(item.ProductID)
		if err != nil {
			s.rollbackReservations(reserved)
			return domain.Order{}, fmt.Errorf("resolve product %s: %w", item.ProductID, err)
		}

		if _, err := s.inventory.Reserve(item.ProductID, item.Size, item.Qty); err != nil {
			s.rollbackReservations(reserved)
			if s.metrics != nil {
				s.metrics.RecordReservationRejected()
			}
			if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrSizeNotFound) {
				return domain.Order{}, &domain.StockExhaustedError{ProductName: product.Name, Size: item.Size}
			}
			return domain.Order{}, fmt.Errorf("reserve %s (size %s): %w", item.ProductID, item.Size, err)
		}
		reserved = append(reserved, reservedItem{productID: item.ProductID, size: item.Size, qty: item.Qty})

		// Цена берётся из живого товара, а не из snapshot'а корзины:
		// устаревшая скидка не должна доехать до заказа.
		orderItems = append(orderItems, domain.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  item.ProductID,
			Name:       product.Name,
			ImageURL:   product.ImageURL,
			Size:       item.Size,
			Qty:        item.Qty,
			PriceMinor: product.PriceMinor,
			CreatedAt:  now,
		})
		lines = append(lines, pricing.Line{Qty: item.Qty, PriceMinor: product.PriceMinor})
	}

	quote := pricing.Compute(lines, in.ShippingMethod, s.opts.Pricing)

	order := domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		Items:           orderItems,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		ShippingMethod:  in.ShippingMethod,
		ItemsMinor:      quote.ItemsMinor,
		ShippingMinor:   quote.ShippingMinor,
		TaxMinor:        quote.TaxMinor,
		TotalMinor:      quote.TotalMinor,
		IsPaid:          in.PaymentMethod != domain.PaymentCashOnDelivery,
		Version:         0,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Create(order); err != nil {
		s.rollbackReservations(reserved)
		return domain.Order{}, fmt.Errorf("persist order: %w", err)
	}

	// Заказ уже надёжно сохранён; неочищенная корзина — мелкая
	// неприятность, а не повод откатывать оформление.
	cart.Clear()
	if err := s.carts.Save(cart); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("failed to clear cart after checkout")
	}

	s.appendTimeline(order.ID, timelineEventOrderCreated, "")
	s.enqueueEvent("order.created", &order)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.TotalMinor,
	}).Info("order placed")

	return order, nil
}

// rollbackReservations возвращает уже списанные резервы. Ошибки возврата
// логируются и не прерывают откат остальных позиций.
func (s *Service) rollbackReservations(reserved []reservedItem) {
	for _, r := range reserved {
		if err := s.inventory.Release(r.productID, r.size, r.qty); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"product_id": r.productID,
				"size":       r.size,
			}).Error("failed to roll back stock reservation")
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordStockReleased()
		}
	}
}

// Cancel отменяет pending-заказ владельца и возвращает остатки. Сначала
// фиксируется статус cancelled под optimistic lock: проигравший гонку
// Cancel не должен вернуть резерв всё ещё живого заказа. Отсутствующий
// bucket при возврате — предупреждение о целостности данных, оно не
// откатывает уже состоявшуюся отмену: вернуть остаток некуда.
func (s *Service) Cancel(orderID, userID string) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID {
		return domain.Order{}, domain.ErrForbidden
	}
	if order.Status != domain.OrderStatusPending {
		return domain.Order{}, fmt.Errorf("cannot cancel order in %s state: %w", order.Status, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = now
	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, fmt.Errorf("save cancelled order: %w", err)
	}
	order.Version++

	for _, item := range order.Items {
		if err := s.inventory.Release(item.ProductID, item.Size, item.Qty); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{
				"order_id":   order.ID,
				"product_id": item.ProductID,
				"size":       item.Size,
			}).Warn("stock release on cancel failed, data integrity suspect")
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordStockReleased()
		}
	}

	if s.metrics != nil {
		s.metrics.RecordOrderCancelled()
	}
	s.appendTimeline(order.ID, timelineEventOrderCancelled, "cancelled by owner")
	s.enqueueEvent("order.cancelled", &order)

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  userID,
	}).Info("order cancelled, stock restored")

	return order, nil
}

// UpdateStatus выставляет статус заказа (только админ). Переход в
// delivered дополнительно проставляет флаги и отметки времени доставки и
// оплаты. Остатки не затрагиваются.
func (s *Service) UpdateStatus(orderID string, status domain.OrderStatus, actor domain.Actor) (domain.Order, error) {
	if !actor.IsAdmin() {
		return domain.Order{}, domain.ErrForbidden
	}
	if !status.Valid() {
		return domain.Order{}, domain.ErrStatusInvalid
	}

	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}

	if s.opts.StrictTransitions && !domain.CanTransition(order.Status, status) {
		return domain.Order{}, fmt.Errorf("%s -> %s: %w", order.Status, status, domain.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	prev := order.Status
	if status == domain.OrderStatusDelivered {
		order.MarkDelivered(now)
	} else {
		order.Status = status
		order.UpdatedAt = now
	}

	if err := s.orders.Save(order); err != nil {
		return domain.Order{}, fmt.Errorf("save order status: %w", err)
	}
	order.Version++

	s.appendTimeline(order.ID, timelineEventOrderStatusChanged, fmt.Sprintf("%s -> %s", prev, status))
	s.enqueueEvent("order.status_changed", &order)

	return order, nil
}

// Get возвращает заказ; не-админ видит только собственные заказы.
func (s *Service) Get(orderID string, actor domain.Actor) (domain.Order, error) {
	order, err := s.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !actor.CanAccessOrder(&order) {
		return domain.Order{}, domain.ErrForbidden
	}
	return order, nil
}

// ListMine возвращает заказы пользователя, новые первыми.
func (s *Service) ListMine(userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return s.orders.ListByUser(userID, 0)
}

// List возвращает страницу всех заказов (только админ), с опциональным
// фильтром по статусу.
func (s *Service) List(filter domain.OrderListFilter, actor domain.Actor) ([]domain.Order, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.ErrStatusInvalid
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	return s.orders.List(filter)
}

// Timeline возвращает события жизненного цикла заказа с той же проверкой
// доступа, что и Get.
func (s *Service) Timeline(orderID string, actor domain.Actor) ([]domain.TimelineEvent, error) {
	if s.timeline == nil {
		return nil, nil
	}
	if _, err := s.Get(orderID, actor); err != nil {
		return nil, err
	}
	return s.timeline.List(orderID)
}

// beginIdempotent регистрирует ключ идемпотентности. done=true означает,
// что повторный запрос уже обслужен и order содержит исходный результат.
func (s *Service) beginIdempotent(userID string, in CreateOrderInput) (domain.Order, bool, error) {
	if s.idem == nil {
		return domain.Order{}, false, nil
	}

	hash := requestHash(userID, in)
	_, err := s.idem.CreateProcessing(in.IdempotencyKey, hash, time.Now().UTC().Add(defaultIdempotencyTTL))
	if err == nil {
		return domain.Order{}, false, nil
	}
	if errors.Is(err, domain.ErrIdempotencyHashMismatch) {
		return domain.Order{}, false, err
	}
	if !errors.Is(err, domain.ErrIdempotencyKeyAlreadyExists) {
		return domain.Order{}, false, fmt.Errorf("register idempotency key: %w", err)
	}

	record, err := s.idem.Get(in.IdempotencyKey)
	if err != nil {
		return domain.Order{}, false, fmt.Errorf("load idempotency record: %w", err)
	}

	switch record.Status {
	case domain.IdempotencyStatusDone:
		order, err := s.orders.Get(string(record.Result))
		if err != nil {
			return domain.Order{}, false, fmt.Errorf("load order for idempotent replay: %w", err)
		}
		return order, true, nil
	case domain.IdempotencyStatusFailed:
		// Прошлая попытка провалилась; повтор с тем же ключом разрешён.
		return domain.Order{}, false, nil
	default:
		return domain.Order{}, false, domain.ErrCheckoutInProgress
	}
}

// finishIdempotent фиксирует итог обработки под ключом.
func (s *Service) finishIdempotent(key string, order domain.Order, opErr error) {
	if s.idem == nil {
		return
	}

	var markErr error
	if opErr != nil {
		markErr = s.idem.MarkFailed(key, []byte(opErr.Error()))
	} else {
		markErr = s.idem.MarkDone(key, []byte(order.ID))
	}
	if markErr != nil {
		s.logger.WithError(markErr).WithField("idempotency_key", key).Warn("failed to finalize idempotency record")
	}
}

func (s *Service) appendTimeline(orderID, eventType, reason string) {
	if s.timeline == nil {
		return
	}
	err := s.timeline.Append(domain.TimelineEvent{
		OrderID:  orderID,
		Type:     eventType,
		Reason:   reason,
		Occurred: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Warn("failed to append timeline event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

// enqueueEvent кладёт событие заказа в outbox; публикацией занимается
// отдельный worker.
func (s *Service) enqueueEvent(eventType string, order *domain.Order) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   string(order.Status),
		"total":    order.TotalMinor,
		"ts":       time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to marshal outbox payload")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     eventType,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue outbox event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordOutboxEvent()
	}
}

// requestHash детерминированно хэширует параметры запроса для сверки
// повторов под одним idempotency-key.
func requestHash(userID string, in CreateOrderInput) string {
	data, _ := json.Marshal(struct {
		UserID          string
		ShippingAddress domain.ShippingAddress
		PaymentMethod   domain.PaymentMethod
		ShippingMethod  domain.ShippingMethod
	}{userID, in.ShippingAddress, in.PaymentMethod, in.ShippingMethod})

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
