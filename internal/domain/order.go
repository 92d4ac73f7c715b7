package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCanceled  OrderStatus = "canceled"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderConfirmed, OrderShipped, OrderDelivered, OrderCanceled:
		return OrderStatus(s), true
	default:
		return "", false
	}
}

// Order lines and total are frozen at creation. Creation is the only
// transition owned by this core; later statuses belong to fulfillment.
type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Amount    int64       `json:"amount"`
	Currency  string      `json:"currency"`
	Status    OrderStatus `json:"status"`
	Address   string      `json:"address"`
	Note      *string     `json:"note,omitempty"`
	Lines     []OrderLine `json:"lines"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderLine captures quantity and the unit price at the moment of purchase.
type OrderLine struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
}
