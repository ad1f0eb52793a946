package order

import (
	"context"
	"errors"
	"testing"

	"boutique_back_end/internal/models"
	"boutique_back_end/internal/storeerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOrderStore struct {
	intents map[string]string // intentID → orderID réservé
	orders  []models.Order
	items   map[string][]models.OrderItem

	writeErr error
	released []string
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		intents: make(map[string]string),
		items:   make(map[string][]models.OrderItem),
	}
}

func (m *mockOrderStore) ClaimIntent(_ context.Context, intentID, orderID string) (bool, string, error) {
	if existing, ok := m.intents[intentID]; ok {
		return false, existing, nil
	}
	m.intents[intentID] = orderID
	return true, "", nil
}

func (m *mockOrderStore) ReleaseIntent(_ context.Context, intentID string) error {
	delete(m.intents, intentID)
	m.released = append(m.released, intentID)
	return nil
}

func (m *mockOrderStore) WriteOrder(_ context.Context, o models.Order, items []models.OrderItem) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.orders = append(m.orders, o)
	m.items[o.ID] = items
	return nil
}

func (m *mockOrderStore) Orders(_ context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	// Les commandes sortent du stockage triées par date décroissante :
	// on déroule donc le slice à l'envers.
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *mockOrderStore) OrderItems(_ context.Context, orderID string) ([]models.OrderItem, error) {
	return m.items[orderID], nil
}

type mockResetter struct {
	deleted   []string
	recreated []string
	deleteErr error
}

func (m *mockResetter) DeleteCart(_ context.Context, cartID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, cartID)
	return nil
}

func (m *mockResetter) GetOrCreateCart(_ context.Context, userID string) (string, error) {
	m.recreated = append(m.recreated, userID)
	return "cart-" + userID, nil
}

func sampleItems() []models.OrderItem {
	return []models.OrderItem{
		{ProductID: "prod-a", Quantity: 2, Price: 19.99, Name: "Tasse"},
		{ProductID: "prod-b", Quantity: 1, Price: 5.00, Name: "Carte"},
	}
}

func TestFinalizeOrder_Success(t *testing.T) {
	store := newMockOrderStore()
	carts := &mockResetter{}
	f := NewFinalizer(store, carts)

	orderID, err := f.FinalizeOrder(context.Background(), "user-1", "cart-old", sampleItems(), 4498, "pi_123")
	require.NoError(t, err)
	require.NotEmpty(t, orderID)

	require.Len(t, store.orders, 1)
	assert.Equal(t, orderID, store.orders[0].ID)
	assert.Equal(t, "user-1", store.orders[0].UserID)
	assert.Equal(t, 44.98, store.orders[0].Total)
	assert.Equal(t, "pi_123", store.orders[0].PaymentIntentID)

	// Toutes les lignes portent l'id de la commande.
	for _, item := range store.items[orderID] {
		assert.Equal(t, orderID, item.OrderID)
	}

	// Le panier consommé est détruit et un panier vide recréé.
	assert.Equal(t, []string{"cart-old"}, carts.deleted)
	assert.Equal(t, []string{"user-1"}, carts.recreated)
}

func TestFinalizeOrder_EmptyItems(t *testing.T) {
	store := newMockOrderStore()
	f := NewFinalizer(store, &mockResetter{})

	_, err := f.FinalizeOrder(context.Background(), "user-1", "cart-1", nil, 4498, "pi_123")
	assert.ErrorIs(t, err, storeerr.ErrInvalidOrder)
	assert.Empty(t, store.orders)
}

func TestFinalizeOrder_NonPositiveTotal(t *testing.T) {
	store := newMockOrderStore()
	f := NewFinalizer(store, &mockResetter{})

	for _, total := range []int64{0, -500} {
		_, err := f.FinalizeOrder(context.Background(), "user-1", "cart-1", sampleItems(), total, "pi_123")
		assert.ErrorIs(t, err, storeerr.ErrInvalidOrder)
	}
	assert.Empty(t, store.orders)
}

func TestFinalizeOrder_InvalidLine(t *testing.T) {
	store := newMockOrderStore()
	f := NewFinalizer(store, &mockResetter{})

	bad := []models.OrderItem{{ProductID: "prod-a", Quantity: 0, Price: 10}}
	_, err := f.FinalizeOrder(context.Background(), "user-1", "cart-1", bad, 1000, "")
	assert.ErrorIs(t, err, storeerr.ErrInvalidOrder)
	assert.Empty(t, store.orders)
}

func TestFinalizeOrder_DuplicateIntent(t *testing.T) {
	store := newMockOrderStore()
	carts := &mockResetter{}
	f := NewFinalizer(store, carts)
	ctx := context.Background()

	first, err := f.FinalizeOrder(ctx, "user-1", "cart-1", sampleItems(), 4498, "pi_dup")
	require.NoError(t, err)

	// Retry client avec le même intent : même commande, pas de doublon.
	second, err := f.FinalizeOrder(ctx, "user-1", "cart-1", sampleItems(), 4498, "pi_dup")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, store.orders, 1)
}

func TestFinalizeOrder_WriteFailureReleasesIntent(t *testing.T) {
	store := newMockOrderStore()
	store.writeErr = errors.New("batch refusé")
	f := NewFinalizer(store, &mockResetter{})

	_, err := f.FinalizeOrder(context.Background(), "user-1", "cart-1", sampleItems(), 4498, "pi_fail")
	assert.ErrorIs(t, err, storeerr.ErrStorage)
	// La réservation est libérée : un retry peut repartir de zéro.
	assert.Equal(t, []string{"pi_fail"}, store.released)
}

func TestFinalizeOrder_ResetFailureStillReturnsOrder(t *testing.T) {
	store := newMockOrderStore()
	carts := &mockResetter{deleteErr: errors.New("timeout")}
	f := NewFinalizer(store, carts)

	orderID, err := f.FinalizeOrder(context.Background(), "user-1", "cart-1", sampleItems(), 4498, "pi_123")
	require.NoError(t, err)
	assert.NotEmpty(t, orderID)
	assert.Len(t, store.orders, 1)
}

func TestListOrders_MostRecentFirst(t *testing.T) {
	store := newMockOrderStore()
	f := NewFinalizer(store, &mockResetter{})
	ctx := context.Background()

	first, err := f.FinalizeOrder(ctx, "user-1", "", sampleItems(), 4498, "pi_1")
	require.NoError(t, err)
	second, err := f.FinalizeOrder(ctx, "user-1", "", sampleItems(), 4498, "pi_2")
	require.NoError(t, err)

	orders, err := f.ListOrders(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second, orders[0].ID)
	assert.Equal(t, first, orders[1].ID)
}

func TestListOrders_EmptyHistory(t *testing.T) {
	f := NewFinalizer(newMockOrderStore(), &mockResetter{})

	orders, err := f.ListOrders(context.Background(), "user-sans-commande")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderLines_FrozenPrices(t *testing.T) {
	store := newMockOrderStore()
	f := NewFinalizer(store, &mockResetter{})
	ctx := context.Background()

	orderID, err := f.FinalizeOrder(ctx, "user-1", "", sampleItems(), 4498, "pi_123")
	require.NoError(t, err)

	lines, err := f.OrderLines(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	// Les prix sont ceux figés au chiffrage, pas relus du catalogue.
	assert.Equal(t, 19.99, lines[0].Price)
}

func TestFinalizeOrder_ResetSkipsUnknownCart(t *testing.T) {
	store := newMockOrderStore()
	carts := &mockResetter{}
	f := NewFinalizer(store, carts)

	_, err := f.FinalizeOrder(context.Background(), "user-1", "", sampleItems(), 4498, "")
	require.NoError(t, err)
	// Pas de panier connu : rien à détruire, mais un panier vide est prêt.
	assert.Empty(t, carts.deleted)
	assert.Equal(t, []string{"user-1"}, carts.recreated)
}
