package domain

import "time"

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ создан, остатки зарезервированы.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusShipped — заказ передан в доставку.
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered — заказ доставлен; терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled — заказ отменён, резерв возвращён; терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid проверяет, что статус относится к поддерживаемым значениям.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, допускает ли статус дальнейшие переходы.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransition описывает прямой (forward-only) граф переходов:
// pending → shipped → delivered, pending → cancelled.
func CanTransition(from, to OrderStatus) bool {
	switch from {
	case OrderStatusPending:
		return to == OrderStatusShipped || to == OrderStatusDelivered || to == OrderStatusCancelled
	case OrderStatusShipped:
		return to == OrderStatusDelivered
	default:
		return false
	}
}

// PaymentMethod — способ оплаты. Ядро не проводит платежи, только
// фиксирует признак isPaid.
type PaymentMethod string

const (
	// PaymentCashOnDelivery — оплата при получении; заказ создаётся неоплаченным.
	PaymentCashOnDelivery PaymentMethod = "CashOnDelivery"
	// PaymentOnline — предоплата; заказ сразу помечается оплаченным.
	PaymentOnline PaymentMethod = "Online"
)

// ShippingMethod — способ доставки; влияет только на shippingPrice.
type ShippingMethod string

const (
	// ShippingStandard — бесплатная доставка.
	ShippingStandard ShippingMethod = "standard"
	// ShippingPrepaid — платная доставка с фиксированной ставкой.
	ShippingPrepaid ShippingMethod = "prepaid"
)

// ShippingAddress — адрес доставки, копируется в заказ как есть.
type ShippingAddress struct {
	FullName   string
	Phone      string
	Line1      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// OrderItem — замороженная копия позиции на момент оформления заказа.
// Имя, картинка и цена никогда не перечитываются из живого каталога.
type OrderItem struct {
	ID         string
	ProductID  string
	Name       string
	ImageURL   string
	Size       string
	Qty        int32
	PriceMinor int64
	CreatedAt  time.Time
}

// Order агрегирует состояние заказа. После создания изменяемы только
// статус и связанные с ним флаги/отметки времени.
type Order struct {
	ID              string
	UserID          string
	Status          OrderStatus
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   PaymentMethod
	ShippingMethod  ShippingMethod
	ItemsMinor      int64
	ShippingMinor   int64
	TaxMinor        int64
	TotalMinor      int64
	IsPaid          bool
	IsDelivered     bool
	PaidAt          time.Time
	DeliveredAt     time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MarkDelivered проставляет флаги и отметки времени доставки. Доставленный
// заказ считается оплаченным независимо от способа оплаты.
func (o *Order) MarkDelivered(now time.Time) {
	o.Status = OrderStatusDelivered
	o.IsDelivered = true
	o.DeliveredAt = now
	o.IsPaid = true
	if o.PaidAt.IsZero() {
		o.PaidAt = now
	}
	o.UpdatedAt = now
}

// ValidateInvariants проверяет базовые инварианты заказа.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}

	// Сверяем itemsPrice с суммой позиций: qty * price.
	var calc int64
	for _, item := range o.Items {
		if item.Qty < 1 {
			errs = append(errs, ErrQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		calc += int64(item.Qty) * item.PriceMinor
	}
	if calc != o.ItemsMinor {
		errs = append(errs, ErrAmountMismatch)
	}
	if o.ItemsMinor+o.ShippingMinor+o.TaxMinor != o.TotalMinor {
		errs = append(errs, ErrAmountMismatch)
	}

	return errs
}
