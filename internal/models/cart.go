package models

type Cart struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
}

// CartItem est une ligne de panier. Name, Price et ImageURL ne sont remplis
// que sur les lectures enrichies (jointure produit côté stockage) ; le prix
// affiché est le prix catalogue courant, pas un prix figé.
type CartItem struct {
	CartID    string  `json:"cart_id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Name      string  `json:"name,omitempty"`
	Price     float64 `json:"price,omitempty"`
	ImageURL  string  `json:"image_url,omitempty"`
}
