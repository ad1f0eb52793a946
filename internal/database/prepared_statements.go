package database

import (
	"log"
	"sync"

	"github.com/gocql/gocql"
)

// Requêtes chaudes du panier et des commandes. gocql met en cache les
// prepared statements par chaîne CQL ; on les centralise ici et on les
// pré-chauffe au démarrage pour éviter la latence du premier appel.
const (
	CQLSelectCartByUser   = "SELECT cart_id FROM carts_by_user WHERE user_id = ?"
	CQLSelectCartOwner    = "SELECT user_id FROM carts WHERE cart_id = ?"
	CQLInsertCartByUser   = "INSERT INTO carts_by_user (user_id, cart_id, created_at) VALUES (?, ?, ?) IF NOT EXISTS"
	CQLInsertCart         = "INSERT INTO carts (cart_id, user_id) VALUES (?, ?)"
	CQLDeleteCartByUser   = "DELETE FROM carts_by_user WHERE user_id = ? IF cart_id = ?"
	CQLDeleteCart         = "DELETE FROM carts WHERE cart_id = ?"
	CQLSelectItem         = "SELECT quantity FROM cart_items WHERE cart_id = ? AND product_id = ?"
	CQLSelectItems        = "SELECT product_id, quantity FROM cart_items WHERE cart_id = ?"
	CQLInsertItem         = "INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (?, ?, 1) IF NOT EXISTS"
	CQLUpdateItemCAS      = "UPDATE cart_items SET quantity = ? WHERE cart_id = ? AND product_id = ? IF quantity = ?"
	CQLDeleteItemCAS      = "DELETE FROM cart_items WHERE cart_id = ? AND product_id = ? IF quantity = ?"
	CQLDeleteItem         = "DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?"
	CQLDeleteItems        = "DELETE FROM cart_items WHERE cart_id = ?"
	CQLSelectProductsIn   = "SELECT product_id, name, price, image_urls FROM products WHERE product_id IN ?"
	CQLInsertOrder        = "INSERT INTO orders_by_user (user_id, order_date, order_id, total, payment_intent_id) VALUES (?, ?, ?, ?, ?)"
	CQLInsertOrderItem    = "INSERT INTO order_items (order_id, product_id, quantity, price, name) VALUES (?, ?, ?, ?, ?)"
	CQLInsertOrderIntent  = "INSERT INTO orders_by_intent (payment_intent_id, order_id) VALUES (?, ?) IF NOT EXISTS"
	CQLSelectOrderIntent  = "SELECT order_id FROM orders_by_intent WHERE payment_intent_id = ?"
	CQLDeleteOrderIntent  = "DELETE FROM orders_by_intent WHERE payment_intent_id = ?"
	CQLSelectOrdersByUser = "SELECT order_id, total, order_date FROM orders_by_user WHERE user_id = ?"
	CQLSelectOrderItems   = "SELECT product_id, quantity, price, name FROM order_items WHERE order_id = ?"
)

var preparedOnce sync.Once

// InitPreparedStatements pré-chauffe les statements fréquents
func InitPreparedStatements() {
	preparedOnce.Do(func() {
		session, err := GetOrdersSession()
		if err != nil {
			log.Printf("⚠️ Impossible de pré-chauffer les prepared statements: %v", err)
			return
		}

		// Itérations vides : forcent la préparation côté serveur sans lire de ligne.
		warm := map[string][]interface{}{
			CQLSelectCartByUser:   {gocql.UUID{}},
			CQLSelectItem:         {gocql.UUID{}, gocql.UUID{}},
			CQLSelectItems:        {gocql.UUID{}},
			CQLSelectOrdersByUser: {gocql.UUID{}},
		}
		for cql, args := range warm {
			iter := session.Query(cql, args...).Iter()
			_ = iter.Close()
		}
		log.Println("✅ Prepared statements pré-chauffés")
	})
}
