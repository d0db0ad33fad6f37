// Package pricing считает стоимость заказа: позиции, доставка, налог, итог.
// Все функции чистые и детерминированные; суммы — в минимальных денежных
// единицах.
package pricing

import "github.com/vladislavdragonenkov/checkout/internal/domain"

// Config задаёт параметры расчёта.
type Config struct {
	// TaxRateBasisPoints — налоговая ставка в базисных пунктах (1800 = 18%).
	TaxRateBasisPoints int64
	// ShippingFeeMinor — фиксированная ставка платной доставки.
	ShippingFeeMinor int64
	// PaidShippingMethod — единственный способ доставки, к которому
	// применяется ставка; остальные бесплатны.
	PaidShippingMethod domain.ShippingMethod
}

// DefaultConfig повторяет ставки исходной системы: 18% налога и 30 за
// prepaid-доставку.
func DefaultConfig() Config {
	return Config{
		TaxRateBasisPoints: 1800,
		ShippingFeeMinor:   30,
		PaidShippingMethod: domain.ShippingPrepaid,
	}
}

// Line — входная позиция для расчёта.
type Line struct {
	Qty        int32
	PriceMinor int64
}

// Quote — рассчитанные суммы заказа.
type Quote struct {
	ItemsMinor    int64
	ShippingMinor int64
	TaxMinor      int64
	TotalMinor    int64
}

// Compute считает суммы по позициям и способу доставки.
// Налог округляется round-half-up до минимальной денежной единицы.
func Compute(lines []Line, method domain.ShippingMethod, cfg Config) Quote {
	var items int64
	for _, line := range lines {
		items += int64(line.Qty) * line.PriceMinor
	}

	var shipping int64
	if method == cfg.PaidShippingMethod {
		shipping = cfg.ShippingFeeMinor
	}

	tax := roundHalfUp(items*cfg.TaxRateBasisPoints, 10000)

	return Quote{
		ItemsMinor:    items,
		ShippingMinor: shipping,
		TaxMinor:      tax,
		TotalMinor:    items + shipping + tax,
	}
}

// roundHalfUp делит num на den с округлением .5 вверх.
// Суммы заказов неотрицательны, поэтому ветка для отрицательных не нужна.
func roundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}
