package domain

// Product price is in minor currency units. Prices are re-read on every cart
// snapshot and only frozen into order lines at order creation.
type Product struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       int64   `json:"price"`
	Currency    string  `json:"currency"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	Active      bool    `json:"is_active"`
}
