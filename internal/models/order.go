package models

import "time"

// Order est immuable une fois écrite : le total et les prix unitaires sont
// figés au moment de l'achat, découplés de toute évolution du catalogue.
type Order struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Total           float64   `json:"total"`
	OrderDate       time.Time `json:"order_date"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
}

type OrderItem struct {
	OrderID   string  `json:"order_id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Name      string  `json:"name,omitempty"`
}
