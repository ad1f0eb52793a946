package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"time"

	"boutique_back_end/internal/models"
	"boutique_back_end/internal/storeerr"

	"github.com/redis/go-redis/v9"
)

// Action est l'opération demandée sur une ligne de panier.
type Action string

const (
	ActionIncrement Action = "increment"
	ActionDecrement Action = "decrement"
)

const (
	// Nombre de tentatives CAS avant d'abandonner face à des mutations
	// entrelacées (même user, plusieurs onglets).
	casRetries = 5

	cartViewTTL    = 10 * time.Minute
	cartViewPrefix = "cartview:"
	cartChanPrefix = "cart:"
)

// Ledger est le grand livre des paniers : il possède l'association
// user → panier actif et les mutations de lignes. Toute mutation est
// persistée de façon synchrone ; Redis ne porte que les lignes brutes
// (quantités, cache invalidé à chaque écriture) et le canal de synchro
// temps réel — jamais de prix, qui restent rejoints au catalogue.
type Ledger struct {
	store Store
	rdb   *redis.Client // optionnel : nil désactive cache et pub/sub
}

func NewLedger(store Store, rdb *redis.Client) *Ledger {
	return &Ledger{store: store, rdb: rdb}
}

// GetOrCreateCart renvoie le panier actif de l'utilisateur, en créant un
// panier vide s'il n'en a pas. Un utilisateur a au plus un panier actif.
func (l *Ledger) GetOrCreateCart(ctx context.Context, userID string) (string, error) {
	cartID, err := l.store.ActiveCart(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}
	if cartID != "" {
		return cartID, nil
	}

	cartID, err = l.store.CreateCart(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}
	return cartID, nil
}

// ActiveCart renvoie le panier actif sans en créer ("" si absent).
func (l *Ledger) ActiveCart(ctx context.Context, userID string) (string, error) {
	cartID, err := l.store.ActiveCart(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}
	return cartID, nil
}

// UpsertLineItem applique increment/decrement sur la ligne (cartID, productID)
// et renvoie la quantité résultante (0 = ligne supprimée).
//
//   - increment sans ligne existante → création à quantité 1
//   - decrement sans ligne existante → ErrNotFound
//   - decrement qui ferait passer sous 1 → suppression de la ligne ;
//     une quantité 0 n'est jamais un état persisté valide
//
// Chaque étape est un compare-and-set côté stockage : deux mutations
// entrelacées sur la même ligne ne peuvent pas se perdre mutuellement.
func (l *Ledger) UpsertLineItem(ctx context.Context, cartID, productID string, action Action) (int, error) {
	if action != ActionIncrement && action != ActionDecrement {
		return 0, fmt.Errorf("action inconnue %q", action)
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		quantity, found, err := l.store.Item(ctx, cartID, productID)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
		}

		if !found {
			if action == ActionDecrement {
				return 0, fmt.Errorf("%w: produit absent du panier", storeerr.ErrNotFound)
			}
			applied, err := l.store.InsertItem(ctx, cartID, productID)
			if err != nil {
				return 0, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
			}
			if applied {
				l.invalidate(ctx, cartID, "updated")
				return 1, nil
			}
			continue // course perdue, on relit
		}

		switch action {
		case ActionIncrement:
			applied, err := l.store.CASQuantity(ctx, cartID, productID, quantity, quantity+1)
			if err != nil {
				return 0, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
			}
			if applied {
				l.invalidate(ctx, cartID, "updated")
				return quantity + 1, nil
			}
		case ActionDecrement:
			if quantity <= 1 {
				applied, err := l.store.DeleteItemIf(ctx, cartID, productID, quantity)
				if err != nil {
					return 0, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
				}
				if applied {
					l.invalidate(ctx, cartID, "updated")
					return 0, nil
				}
			} else {
				applied, err := l.store.CASQuantity(ctx, cartID, productID, quantity, quantity-1)
				if err != nil {
					return 0, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
				}
				if applied {
					l.invalidate(ctx, cartID, "updated")
					return quantity - 1, nil
				}
			}
		}
	}

	return 0, fmt.Errorf("%w: conflit d'écriture persistant sur la ligne", storeerr.ErrStorage)
}

// RemoveLineItem supprime la ligne sans condition. Idempotent : pas
// d'erreur si la ligne est déjà absente.
func (l *Ledger) RemoveLineItem(ctx context.Context, cartID, productID string) error {
	if err := l.store.DeleteItem(ctx, cartID, productID); err != nil {
		return fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}
	l.invalidate(ctx, cartID, "updated")
	return nil
}

// ListLineItems renvoie les lignes enrichies du nom et du prix catalogue.
// Seules les quantités sont cachées : le prix est rejoint au catalogue à
// chaque lecture (une seule requête produits groupée), un changement de
// prix est donc visible immédiatement, sans attendre l'expiration du cache.
func (l *Ledger) ListLineItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	items, ok := l.cachedView(ctx, cartID)
	if !ok {
		var err error
		items, err = l.store.Items(ctx, cartID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
		}
		l.cacheView(ctx, cartID, items)
	}
	if len(items) == 0 {
		return []models.CartItem{}, nil
	}

	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	infos, err := l.store.Products(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}

	for i := range items {
		if info, ok := infos[items[i].ProductID]; ok {
			items[i].Name = info.Name
			items[i].Price = info.Price
			items[i].ImageURL = info.ImageURL
		}
	}

	return items, nil
}

// DeleteCart supprime le panier et toutes ses lignes. Idempotent :
// deux suppressions successives réussissent toutes les deux.
func (l *Ledger) DeleteCart(ctx context.Context, cartID string) error {
	owner, _ := l.store.CartOwner(ctx, cartID)

	if err := l.store.DeleteCart(ctx, cartID); err != nil {
		return fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}

	if l.rdb != nil {
		l.rdb.Del(ctx, cartViewPrefix+cartID)
		if owner != "" {
			l.rdb.Publish(ctx, cartChanPrefix+owner, "cleared")
		}
	}
	return nil
}

// CartOwner renvoie le user propriétaire du panier ("" si inconnu).
func (l *Ledger) CartOwner(ctx context.Context, cartID string) (string, error) {
	owner, err := l.store.CartOwner(ctx, cartID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", storeerr.ErrStorage, err)
	}
	return owner, nil
}

// ComputeTotalCents additionne quantité × prix unitaire en unités
// mineures (centimes). L'accumulation en entiers évite toute dérive
// flottante ; l'arrondi n'intervient qu'à la conversion de chaque prix.
func ComputeTotalCents(items []models.CartItem) int64 {
	var total int64
	for _, item := range items {
		total += int64(item.Quantity) * ToMinorUnits(item.Price)
	}
	return total
}

// ToMinorUnits convertit un montant décimal en centimes.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// --- cache & synchro temps réel ---

func (l *Ledger) cachedView(ctx context.Context, cartID string) ([]models.CartItem, bool) {
	if l.rdb == nil {
		return nil, false
	}
	data, err := l.rdb.Get(ctx, cartViewPrefix+cartID).Result()
	if err != nil || data == "" {
		return nil, false
	}
	var items []models.CartItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, false
	}
	return items, true
}

// cacheView mémorise les lignes telles que lues du stockage (quantités,
// sans enrichissement catalogue).
func (l *Ledger) cacheView(ctx context.Context, cartID string, items []models.CartItem) {
	if l.rdb == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := l.rdb.Set(ctx, cartViewPrefix+cartID, data, cartViewTTL).Err(); err != nil {
		log.Printf("⚠️ Cache vue panier %s non écrit: %v", cartID, err)
	}
}

// invalidate purge la vue cachée et notifie le canal de synchro du user.
func (l *Ledger) invalidate(ctx context.Context, cartID, event string) {
	if l.rdb == nil {
		return
	}
	l.rdb.Del(ctx, cartViewPrefix+cartID)
	if owner, err := l.store.CartOwner(ctx, cartID); err == nil && owner != "" {
		l.rdb.Publish(ctx, cartChanPrefix+owner, event)
	}
}
