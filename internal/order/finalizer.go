package order

import (
	"context"
	"fmt"
	"log"
	"time"

	"boutique_back_end/internal/models"
	"boutique_back_end/internal/storeerr"

	"github.com/google/uuid"
)

// CartResetter est la vue du grand livre panier dont le finaliseur a
// besoin pour remplacer le panier consommé par un panier vide.
type CartResetter interface {
	DeleteCart(ctx context.Context, cartID string) error
	GetOrCreateCart(ctx context.Context, userID string) (string, error)
}

// Finalizer transforme un panier chiffré en commande durable, puis
// remet le panier à zéro. Aucune commande n'est écrite sans lignes,
// aucune commande n'est visible partiellement.
type Finalizer struct {
	store Store
	carts CartResetter
}

func NewFinalizer(store Store, carts CartResetter) *Finalizer {
	return &Finalizer{store: store, carts: carts}
}

// FinalizeOrder écrit la commande (prix unitaires figés au chiffrage,
// jamais relus du catalogue) et renvoie son id.
//
// intentID peut être vide (paiement hors Stripe en test) ; sinon il sert
// de clé d'idempotence : un retry client ou un webhook dupliqué pour le
// même intent renvoie l'id de la commande existante au lieu d'en créer
// une seconde.
//
// L'échec de la remise à zéro du panier après l'écriture de la commande
// est une incohérence récupérable : la commande existe, le vieux panier
// traîne. On logge et on renvoie quand même l'id ; rejouer la remise à
// zéro est un no-op grâce à la sémantique get-or-create du grand livre.
func (f *Finalizer) FinalizeOrder(ctx context.Context, userID, cartID string, items []models.OrderItem, totalCents int64, intentID string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("%w: aucune ligne", storeerr.ErrInvalidOrder)
	}
	if totalCents <= 0 {
		return "", fmt.Errorf("%w: total non positif", storeerr.ErrInvalidOrder)
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return "", fmt.Errorf("%w: quantité invalide pour %s", storeerr.ErrInvalidOrder, item.ProductID)
		}
		if item.Price < 0 {
			return "", fmt.Errorf("%w: prix négatif pour %s", storeerr.ErrInvalidOrder, item.ProductID)
		}
	}

	orderID := uuid.NewString()

	if intentID != "" {
		applied, existing, err := f.store.ClaimIntent(ctx, intentID, orderID)
		if err != nil {
			return "", fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
		}
		if !applied {
			log.Printf("🔁 Commande déjà enregistrée pour l'intent %s, on ignore", intentID)
			return existing, nil
		}
	}

	o := models.Order{
		ID:              orderID,
		UserID:          userID,
		Total:           float64(totalCents) / 100,
		OrderDate:       time.Now().UTC(),
		PaymentIntentID: intentID,
	}
	for i := range items {
		items[i].OrderID = orderID
	}

	if err := f.store.WriteOrder(ctx, o, items); err != nil {
		if intentID != "" {
			// Libère la réservation pour qu'un retry puisse repartir.
			if relErr := f.store.ReleaseIntent(ctx, intentID); relErr != nil {
				log.Printf("⚠️ Libération de l'intent %s impossible: %v", intentID, relErr)
			}
		}
		return "", fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}

	f.resetCart(ctx, userID, cartID)

	log.Printf("✅ Commande %s enregistrée (%.2f€) pour le user %s", orderID, o.Total, userID)
	return orderID, nil
}

// resetCart détruit le panier consommé et en recrée un vide.
func (f *Finalizer) resetCart(ctx context.Context, userID, cartID string) {
	if cartID != "" {
		if err := f.carts.DeleteCart(ctx, cartID); err != nil {
			log.Printf("⚠️ Remise à zéro du panier %s échouée (commande écrite, à rejouer): %v", cartID, err)
			return
		}
	}
	if _, err := f.carts.GetOrCreateCart(ctx, userID); err != nil {
		log.Printf("⚠️ Recréation du panier pour %s échouée (commande écrite, à rejouer): %v", userID, err)
	}
}

// ListOrders renvoie l'historique du user, le plus récent d'abord.
func (f *Finalizer) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := f.store.Orders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// OrderLines renvoie les lignes figées d'une commande.
func (f *Finalizer) OrderLines(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	items, err := f.store.OrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}
	return items, nil
}
