package order

import (
	"context"
	"time"

	"boutique_back_end/internal/database"
	"boutique_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// Store est la frontière de persistance des commandes. Une commande
// écrite n'est jamais mutée, seulement ajoutée.
type Store interface {
	// ClaimIntent réserve un payment intent pour un order id (LWT).
	// Si l'intent est déjà réservé, renvoie l'order id existant.
	ClaimIntent(ctx context.Context, intentID, orderID string) (bool, string, error)
	ReleaseIntent(ctx context.Context, intentID string) error

	// WriteOrder écrit la commande et toutes ses lignes en une unité
	// atomique : tout est appliqué, ou rien.
	WriteOrder(ctx context.Context, o models.Order, items []models.OrderItem) error

	Orders(ctx context.Context, userID string) ([]models.Order, error)
	OrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
}

type ScyllaStore struct {
	session *gocql.Session
}

func NewScyllaStore() (*ScyllaStore, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}
	return &ScyllaStore{session: session}, nil
}

func parseID(id string) (gocql.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return gocql.UUID{}, err
	}
	return gocql.UUID(parsed), nil
}

func (s *ScyllaStore) ClaimIntent(ctx context.Context, intentID, orderID string) (bool, string, error) {
	oid, err := parseID(orderID)
	if err != nil {
		return false, "", err
	}

	prev := map[string]interface{}{}
	applied, err := s.session.Query(database.CQLInsertOrderIntent, intentID, oid).
		WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, "", err
	}
	if !applied {
		if existing, ok := prev["order_id"].(gocql.UUID); ok {
			return false, existing.String(), nil
		}
		// Le CAS ne renvoie pas toujours la ligne gagnante : on la relit.
		var existing gocql.UUID
		if err := s.session.Query(database.CQLSelectOrderIntent, intentID).
			WithContext(ctx).Scan(&existing); err == nil {
			return false, existing.String(), nil
		}
		return false, "", nil
	}
	return true, orderID, nil
}

func (s *ScyllaStore) ReleaseIntent(ctx context.Context, intentID string) error {
	return s.session.Query(database.CQLDeleteOrderIntent, intentID).WithContext(ctx).Exec()
}

func (s *ScyllaStore) WriteOrder(ctx context.Context, o models.Order, items []models.OrderItem) error {
	uid, err := parseID(o.UserID)
	if err != nil {
		return err
	}
	oid, err := parseID(o.ID)
	if err != nil {
		return err
	}

	// Batch loggé : Scylla rejoue le journal jusqu'à application complète,
	// aucune ligne de commande n'est jamais visible isolément.
	batch := s.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(database.CQLInsertOrder, uid, o.OrderDate, oid, o.Total, o.PaymentIntentID)
	for _, item := range items {
		pid, err := parseID(item.ProductID)
		if err != nil {
			return err
		}
		batch.Query(database.CQLInsertOrderItem, oid, pid, item.Quantity, item.Price, item.Name)
	}
	return s.session.ExecuteBatch(batch)
}

func (s *ScyllaStore) Orders(ctx context.Context, userID string) ([]models.Order, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, err
	}

	// order_date est la clé de clustering, triée DESC : le plus récent d'abord.
	iter := s.session.Query(database.CQLSelectOrdersByUser, uid).WithContext(ctx).Iter()
	var (
		orders    []models.Order
		orderID   gocql.UUID
		total     float64
		orderDate time.Time
	)
	for iter.Scan(&orderID, &total, &orderDate) {
		orders = append(orders, models.Order{
			ID:        orderID.String(),
			UserID:    userID,
			Total:     total,
			OrderDate: orderDate,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *ScyllaStore) OrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	oid, err := parseID(orderID)
	if err != nil {
		return nil, err
	}

	iter := s.session.Query(database.CQLSelectOrderItems, oid).WithContext(ctx).Iter()
	var (
		items     []models.OrderItem
		productID gocql.UUID
		quantity  int
		price     float64
		name      string
	)
	for iter.Scan(&productID, &quantity, &price, &name) {
		items = append(items, models.OrderItem{
			OrderID:   orderID,
			ProductID: productID.String(),
			Quantity:  quantity,
			Price:     price,
			Name:      name,
		})
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return items, nil
}
