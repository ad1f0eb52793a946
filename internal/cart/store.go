package cart

import (
	"context"
	"fmt"
	"time"

	"boutique_back_end/internal/database"
	"boutique_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// Store est la frontière de persistance du grand livre panier. La
// sérialisation des mutations concurrentes repose entièrement sur les
// garanties transactionnelles du stockage (LWT), jamais sur un mutex
// applicatif : les requêtes peuvent être servies par des process distincts.
type Store interface {
	ActiveCart(ctx context.Context, userID string) (string, error)
	CreateCart(ctx context.Context, userID string) (string, error)
	CartOwner(ctx context.Context, cartID string) (string, error)
	DeleteCart(ctx context.Context, cartID string) error

	Item(ctx context.Context, cartID, productID string) (int, bool, error)
	InsertItem(ctx context.Context, cartID, productID string) (bool, error)
	CASQuantity(ctx context.Context, cartID, productID string, from, to int) (bool, error)
	DeleteItemIf(ctx context.Context, cartID, productID string, from int) (bool, error)
	DeleteItem(ctx context.Context, cartID, productID string) error
	Items(ctx context.Context, cartID string) ([]models.CartItem, error)

	Products(ctx context.Context, productIDs []string) (map[string]ProductInfo, error)
}

// ProductInfo est la projection catalogue utilisée pour enrichir les lignes.
type ProductInfo struct {
	Name     string
	Price    float64
	ImageURL string
}

// ScyllaStore persiste les paniers dans le keyspace commandes et lit le
// catalogue dans le keyspace produits.
type ScyllaStore struct {
	orders   *gocql.Session
	products *gocql.Session
}

func NewScyllaStore() (*ScyllaStore, error) {
	orders, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}
	products, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}
	return &ScyllaStore{orders: orders, products: products}, nil
}

func parseID(id string) (gocql.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gocql.UUID{}, fmt.Errorf("identifiant invalide %q: %v", id, err)
	}
	return gocql.UUID(parsed), nil
}

func (s *ScyllaStore) ActiveCart(ctx context.Context, userID string) (string, error) {
	uid, err := parseID(userID)
	if err != nil {
		return "", err
	}

	var cartID gocql.UUID
	err = s.orders.Query(database.CQLSelectCartByUser, uid).WithContext(ctx).Scan(&cartID)
	if err == gocql.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cartID.String(), nil
}

func (s *ScyllaStore) CreateCart(ctx context.Context, userID string) (string, error) {
	uid, err := parseID(userID)
	if err != nil {
		return "", err
	}

	cartID := gocql.UUID(uuid.New())
	prev := map[string]interface{}{}
	applied, err := s.orders.Query(database.CQLInsertCartByUser, uid, cartID, time.Now().UTC()).
		WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return "", err
	}
	if !applied {
		// Un autre appel a gagné la course : on renvoie son panier,
		// recréer un panier pour un user qui en a déjà un est un no-op.
		if existing, ok := prev["cart_id"].(gocql.UUID); ok {
			return existing.String(), nil
		}
		return s.ActiveCart(ctx, userID)
	}

	if err := s.orders.Query(database.CQLInsertCart, cartID, uid).WithContext(ctx).Exec(); err != nil {
		return "", err
	}
	return cartID.String(), nil
}

func (s *ScyllaStore) CartOwner(ctx context.Context, cartID string) (string, error) {
	cid, err := parseID(cartID)
	if err != nil {
		return "", err
	}

	var userID gocql.UUID
	err = s.orders.Query(database.CQLSelectCartOwner, cid).WithContext(ctx).Scan(&userID)
	if err == gocql.ErrNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userID.String(), nil
}

func (s *ScyllaStore) DeleteCart(ctx context.Context, cartID string) error {
	cid, err := parseID(cartID)
	if err != nil {
		return err
	}

	owner, err := s.CartOwner(ctx, cartID)
	if err != nil {
		return err
	}

	if err := s.orders.Query(database.CQLDeleteItems, cid).WithContext(ctx).Exec(); err != nil {
		return err
	}
	if err := s.orders.Query(database.CQLDeleteCart, cid).WithContext(ctx).Exec(); err != nil {
		return err
	}
	if owner != "" {
		uid, err := parseID(owner)
		if err != nil {
			return err
		}
		// Conditionnel sur cart_id : si un panier plus récent a déjà pris
		// la place, on ne le supprime pas.
		prev := map[string]interface{}{}
		if _, err := s.orders.Query(database.CQLDeleteCartByUser, uid, cid).
			WithContext(ctx).MapScanCAS(prev); err != nil {
			return err
		}
	}
	return nil
}

func (s *ScyllaStore) Item(ctx context.Context, cartID, productID string) (int, bool, error) {
	cid, err := parseID(cartID)
	if err != nil {
		return 0, false, err
	}
	pid, err := parseID(productID)
	if err != nil {
		return 0, false, err
	}

	var quantity int
	err = s.orders.Query(database.CQLSelectItem, cid, pid).WithContext(ctx).Scan(&quantity)
	if err == gocql.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return quantity, true, nil
}

func (s *ScyllaStore) InsertItem(ctx context.Context, cartID, productID string) (bool, error) {
	cid, err := parseID(cartID)
	if err != nil {
		return false, err
	}
	pid, err := parseID(productID)
	if err != nil {
		return false, err
	}

	prev := map[string]interface{}{}
	return s.orders.Query(database.CQLInsertItem, cid, pid).WithContext(ctx).MapScanCAS(prev)
}

func (s *ScyllaStore) CASQuantity(ctx context.Context, cartID, productID string, from, to int) (bool, error) {
	cid, err := parseID(cartID)
	if err != nil {
		return false, err
	}
	pid, err := parseID(productID)
	if err != nil {
		return false, err
	}

	prev := map[string]interface{}{}
	return s.orders.Query(database.CQLUpdateItemCAS, to, cid, pid, from).WithContext(ctx).MapScanCAS(prev)
}

func (s *ScyllaStore) DeleteItemIf(ctx context.Context, cartID, productID string, from int) (bool, error) {
	cid, err := parseID(cartID)
	if err != nil {
		return false, err
	}
	pid, err := parseID(productID)
	if err != nil {
		return false, err
	}

	prev := map[string]interface{}{}
	return s.orders.Query(database.CQLDeleteItemCAS, cid, pid, from).WithContext(ctx).MapScanCAS(prev)
}

func (s *ScyllaStore) DeleteItem(ctx context.Context, cartID, productID string) error {
	cid, err := parseID(cartID)
	if err != nil {
		return err
	}
	pid, err := parseID(productID)
	if err != nil {
		return err
	}

	return s.orders.Query(database.CQLDeleteItem, cid, pid).WithContext(ctx).Exec()
}

func (s *ScyllaStore) Items(ctx context.Context, cartID string) ([]models.CartItem, error) {
	cid, err := parseID(cartID)
	if err != nil {
		return nil, err
	}

	iter := s.orders.Query(database.CQLSelectItems, cid).WithContext(ctx).Iter()
	var (
		items     []models.CartItem
		productID gocql.UUID
		quantity  int
	)
	for iter.Scan(&productID, &quantity) {
		items = append(items, models.CartItem{
			CartID:    cartID,
			ProductID: productID.String(),
			Quantity:  quantity,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return items, nil
}

// Products lit le catalogue en une seule requête IN — pas de N+1.
func (s *ScyllaStore) Products(ctx context.Context, productIDs []string) (map[string]ProductInfo, error) {
	ids := make([]gocql.UUID, 0, len(productIDs))
	for _, id := range productIDs {
		pid, err := parseID(id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, pid)
	}

	iter := s.products.Query(database.CQLSelectProductsIn, ids).WithContext(ctx).Iter()
	var (
		out       = make(map[string]ProductInfo, len(ids))
		productID gocql.UUID
		name      string
		price     float64
		imageURLs []string
	)
	for iter.Scan(&productID, &name, &price, &imageURLs) {
		info := ProductInfo{Name: name, Price: price}
		if len(imageURLs) > 0 {
			info.ImageURL = imageURLs[0]
		}
		out[productID.String()] = info
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return out, nil
}
