package domain

import "time"

// Cart is a draft: exactly one live cart per user, no availability guarantee
// until checkout converts it into an order.
type Cart struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CartLine is a persisted (product, qty) pair. Qty is always >= 1; a
// decrement below 1 removes the row.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// SnapshotLine carries the product at its current price. It is both the
// display form of the cart and the input to order creation.
type SnapshotLine struct {
	Product Product `json:"product"`
	Qty     int     `json:"qty"`
}

func (l SnapshotLine) Subtotal() int64 {
	return l.Product.Price * int64(l.Qty)
}

// SnapshotTotal sums the snapshot and determines its currency. Lines must
// share one currency; mixing is rejected rather than silently summed.
func SnapshotTotal(lines []SnapshotLine) (int64, string, error) {
	if len(lines) == 0 {
		return 0, "", ErrEmptyCart
	}
	currency := lines[0].Product.Currency
	var total int64
	for _, l := range lines {
		if l.Product.Currency != currency {
			return 0, "", ErrMixedCurrency
		}
		total += l.Subtotal()
	}
	return total, currency, nil
}
