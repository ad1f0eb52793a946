package handlers

import (
	"boutique_back_end/internal/cart"
	"boutique_back_end/internal/database"
	"boutique_back_end/internal/order"

	"github.com/gin-gonic/gin"
)

// Services partagés par les handlers, câblés une fois au démarrage.
var (
	ledger    *cart.Ledger
	finalizer *order.Finalizer
)

// Setup construit le grand livre panier et le finaliseur de commandes
// au-dessus des sessions ScyllaDB globales.
func Setup() error {
	cartStore, err := cart.NewScyllaStore()
	if err != nil {
		return err
	}
	ledger = cart.NewLedger(cartStore, database.Redis)

	orderStore, err := order.NewScyllaStore()
	if err != nil {
		return err
	}
	finalizer = order.NewFinalizer(orderStore, ledger)
	return nil
}

// SetupForTest injecte des services pré-construits (tests handlers).
func SetupForTest(l *cart.Ledger, f *order.Finalizer) {
	ledger = l
	finalizer = f
}

// callerOwnsCart refuse d'agir sur le panier d'un autre utilisateur.
// Sans identité dans le contexte (routes non protégées), on laisse passer.
func callerOwnsCart(c *gin.Context, cartID string) bool {
	caller := c.GetString("user_id")
	if caller == "" {
		return true
	}
	owner, err := ledger.CartOwner(c.Request.Context(), cartID)
	if err != nil || owner == "" {
		// Panier inconnu : l'opération aval tranchera (idempotence oblige).
		return true
	}
	return owner == caller
}
