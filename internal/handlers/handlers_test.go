package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"boutique_back_end/internal/cart"
	"boutique_back_end/internal/models"
	"boutique_back_end/internal/order"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCartStore est un stockage panier en mémoire qui respecte les mêmes
// règles CAS que le vrai (quantité 0 jamais persistée, IDs en UUID).
type fakeCartStore struct {
	cartsByUser map[string]string
	owners      map[string]string
	items       map[string]map[string]int
	products    map[string]cart.ProductInfo
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{
		cartsByUser: make(map[string]string),
		owners:      make(map[string]string),
		items:       make(map[string]map[string]int),
		products:    make(map[string]cart.ProductInfo),
	}
}

func (f *fakeCartStore) ActiveCart(_ context.Context, userID string) (string, error) {
	return f.cartsByUser[userID], nil
}

func (f *fakeCartStore) CreateCart(_ context.Context, userID string) (string, error) {
	if existing, ok := f.cartsByUser[userID]; ok {
		return existing, nil
	}
	cartID := uuid.NewString()
	f.cartsByUser[userID] = cartID
	f.owners[cartID] = userID
	f.items[cartID] = make(map[string]int)
	return cartID, nil
}

func (f *fakeCartStore) CartOwner(_ context.Context, cartID string) (string, error) {
	return f.owners[cartID], nil
}

func (f *fakeCartStore) DeleteCart(_ context.Context, cartID string) error {
	if owner, ok := f.owners[cartID]; ok {
		delete(f.cartsByUser, owner)
	}
	delete(f.owners, cartID)
	delete(f.items, cartID)
	return nil
}

func (f *fakeCartStore) Item(_ context.Context, cartID, productID string) (int, bool, error) {
	qty, ok := f.items[cartID][productID]
	return qty, ok, nil
}

func (f *fakeCartStore) InsertItem(_ context.Context, cartID, productID string) (bool, error) {
	if f.items[cartID] == nil {
		f.items[cartID] = make(map[string]int)
	}
	if _, exists := f.items[cartID][productID]; exists {
		return false, nil
	}
	f.items[cartID][productID] = 1
	return true, nil
}

func (f *fakeCartStore) CASQuantity(_ context.Context, cartID, productID string, from, to int) (bool, error) {
	if f.items[cartID][productID] != from {
		return false, nil
	}
	f.items[cartID][productID] = to
	return true, nil
}

func (f *fakeCartStore) DeleteItemIf(_ context.Context, cartID, productID string, from int) (bool, error) {
	if f.items[cartID][productID] != from {
		return false, nil
	}
	delete(f.items[cartID], productID)
	return true, nil
}

func (f *fakeCartStore) DeleteItem(_ context.Context, cartID, productID string) error {
	delete(f.items[cartID], productID)
	return nil
}

func (f *fakeCartStore) Items(_ context.Context, cartID string) ([]models.CartItem, error) {
	var out []models.CartItem
	for productID, qty := range f.items[cartID] {
		out = append(out, models.CartItem{CartID: cartID, ProductID: productID, Quantity: qty})
	}
	return out, nil
}

func (f *fakeCartStore) Products(_ context.Context, productIDs []string) (map[string]cart.ProductInfo, error) {
	out := make(map[string]cart.ProductInfo)
	for _, id := range productIDs {
		if info, ok := f.products[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}

type fakeOrderStore struct {
	intents map[string]string
	orders  []models.Order
	items   map[string][]models.OrderItem
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		intents: make(map[string]string),
		items:   make(map[string][]models.OrderItem),
	}
}

func (f *fakeOrderStore) ClaimIntent(_ context.Context, intentID, orderID string) (bool, string, error) {
	if existing, ok := f.intents[intentID]; ok {
		return false, existing, nil
	}
	f.intents[intentID] = orderID
	return true, "", nil
}

func (f *fakeOrderStore) ReleaseIntent(_ context.Context, intentID string) error {
	delete(f.intents, intentID)
	return nil
}

func (f *fakeOrderStore) WriteOrder(_ context.Context, o models.Order, items []models.OrderItem) error {
	f.orders = append(f.orders, o)
	f.items[o.ID] = items
	return nil
}

func (f *fakeOrderStore) Orders(_ context.Context, userID string) ([]models.Order, error) {
	var out []models.Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			out = append(out, f.orders[i])
		}
	}
	return out, nil
}

func (f *fakeOrderStore) OrderItems(_ context.Context, orderID string) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

// newTestRouter câble les handlers sur des stores en mémoire, sans
// Redis ni middleware d'auth (les routes testées ici portent leur
// propre validation).
func newTestRouter(cartStore *fakeCartStore, orderStore *fakeOrderStore) *gin.Engine {
	return newTestRouterAs("", cartStore, orderStore)
}

// newTestRouterAs pose en plus l'identité dans le contexte de chaque
// requête, comme le fait le middleware JWT après vérification du token.
func newTestRouterAs(userID string, cartStore *fakeCartStore, orderStore *fakeOrderStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	l := cart.NewLedger(cartStore, nil)
	SetupForTest(l, order.NewFinalizer(orderStore, l))

	r := gin.New()
	if userID != "" {
		r.Use(func(c *gin.Context) {
			c.Set("user_id", userID)
			c.Next()
		})
	}
	api := r.Group("/api")
	{
		api.GET("/carts/:userId", GetCarts)
		api.POST("/carts", CreateCart)
		api.DELETE("/carts/:cartId", DeleteCart)
		api.GET("/cartitems/:cartId", GetCartItems)
		api.POST("/cartitems", UpsertCartItem)
		api.DELETE("/cartitems/:cartId/:productId", DeleteCartItem)
		api.POST("/create-payment-intent", CreatePaymentIntent)
		api.POST("/orders", CreateOrder)
		api.GET("/orders/:userId", GetOrders)
	}
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateCartThenGetCarts(t *testing.T) {
	r := newTestRouter(newFakeCartStore(), newFakeOrderStore())
	userID := uuid.NewString()

	w := doJSON(r, http.MethodPost, "/api/carts", `{"userId":"`+userID+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		CartID string `json:"cartId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.CartID)

	// Recréer ne duplique pas : même panier.
	w = doJSON(r, http.MethodPost, "/api/carts", `{"userId":"`+userID+`"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), created.CartID)

	w = doJSON(r, http.MethodGet, "/api/carts/"+userID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var carts []models.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &carts))
	require.Len(t, carts, 1)
	assert.Equal(t, created.CartID, carts[0].ID)
}

func TestGetCarts_NoActiveCart(t *testing.T) {
	r := newTestRouter(newFakeCartStore(), newFakeOrderStore())

	w := doJSON(r, http.MethodGet, "/api/carts/"+uuid.NewString(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestUpsertCartItem_IncrementThenDecrement(t *testing.T) {
	store := newFakeCartStore()
	r := newTestRouter(store, newFakeOrderStore())
	userID := uuid.NewString()
	productID := uuid.NewString()

	cartID, err := store.CreateCart(context.Background(), userID)
	require.NoError(t, err)

	body := `{"cartId":"` + cartID + `","productId":"` + productID + `","action":"increment"}`
	w := doJSON(r, http.MethodPost, "/api/cartitems", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"quantity":1}`, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/cartitems", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"quantity":2}`, w.Body.String())

	dec := `{"cartId":"` + cartID + `","productId":"` + productID + `","action":"decrement"}`
	w = doJSON(r, http.MethodPost, "/api/cartitems", dec)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"quantity":1}`, w.Body.String())

	// Décrément à quantité 1 : la ligne disparaît.
	w = doJSON(r, http.MethodPost, "/api/cartitems", dec)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"quantity":0,"removed":true}`, w.Body.String())
}

func TestUpsertCartItem_DecrementMissingLine(t *testing.T) {
	store := newFakeCartStore()
	r := newTestRouter(store, newFakeOrderStore())

	cartID, err := store.CreateCart(context.Background(), uuid.NewString())
	require.NoError(t, err)

	body := `{"cartId":"` + cartID + `","productId":"` + uuid.NewString() + `","action":"decrement"}`
	w := doJSON(r, http.MethodPost, "/api/cartitems", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Produit absent du panier")
}

func TestUpsertCartItem_UnknownAction(t *testing.T) {
	r := newTestRouter(newFakeCartStore(), newFakeOrderStore())

	body := `{"cartId":"` + uuid.NewString() + `","productId":"` + uuid.NewString() + `","action":"reset"}`
	w := doJSON(r, http.MethodPost, "/api/cartitems", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteCart_Idempotent(t *testing.T) {
	store := newFakeCartStore()
	r := newTestRouter(store, newFakeOrderStore())

	cartID, err := store.CreateCart(context.Background(), uuid.NewString())
	require.NoError(t, err)

	w := doJSON(r, http.MethodDelete, "/api/carts/"+cartID, "")
	require.Equal(t, http.StatusOK, w.Code)

	// Déjà supprimé : toujours 200.
	w = doJSON(r, http.MethodDelete, "/api/carts/"+cartID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteCart_InvalidID(t *testing.T) {
	r := newTestRouter(newFakeCartStore(), newFakeOrderStore())

	w := doJSON(r, http.MethodDelete, "/api/carts/pas-un-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCartItems_Enriched(t *testing.T) {
	store := newFakeCartStore()
	productID := uuid.NewString()
	store.products[productID] = cart.ProductInfo{Name: "Tasse", Price: 19.99}
	r := newTestRouter(store, newFakeOrderStore())

	cartID, err := store.CreateCart(context.Background(), uuid.NewString())
	require.NoError(t, err)
	body := `{"cartId":"` + cartID + `","productId":"` + productID + `","action":"increment"}`
	doJSON(r, http.MethodPost, "/api/cartitems", body)

	w := doJSON(r, http.MethodGet, "/api/cartitems/"+cartID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var items []models.CartItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Tasse", items[0].Name)
	assert.Equal(t, 19.99, items[0].Price)
}

func TestCreatePaymentIntent_NonPositiveAmount(t *testing.T) {
	r := newTestRouter(newFakeCartStore(), newFakeOrderStore())

	// Validé avant tout appel Stripe : pas de clé nécessaire.
	for _, body := range []string{`{"amount":0}`, `{"amount":-500}`} {
		w := doJSON(r, http.MethodPost, "/api/create-payment-intent", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCreateOrder_Success(t *testing.T) {
	store := newFakeCartStore()
	orderStore := newFakeOrderStore()
	r := newTestRouter(store, orderStore)
	userID := uuid.NewString()
	productID := uuid.NewString()

	cartID, err := store.CreateCart(context.Background(), userID)
	require.NoError(t, err)

	body := `{
		"userId": "` + userID + `",
		"cartItems": [{"cartId":"` + cartID + `","productId":"` + productID + `","quantity":2,"price":19.99,"name":"Tasse"}],
		"totalAmount": 39.98,
		"paymentIntentId": "pi_test_1"
	}`
	w := doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.OrderID)

	require.Len(t, orderStore.orders, 1)
	assert.Equal(t, 39.98, orderStore.orders[0].Total)

	// Le panier consommé a été remplacé par un panier vide.
	newCart := store.cartsByUser[userID]
	assert.NotEqual(t, cartID, newCart)
	assert.NotEmpty(t, newCart)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	r := newTestRouter(newFakeCartStore(), newFakeOrderStore())

	body := `{"userId":"` + uuid.NewString() + `","cartItems":[],"totalAmount":10,"paymentIntentId":"pi_x"}`
	w := doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "vide")
}

func TestCreateOrder_NonPositiveTotal(t *testing.T) {
	r := newTestRouter(newFakeCartStore(), newFakeOrderStore())
	userID := uuid.NewString()

	body := `{"userId":"` + userID + `","cartItems":[{"productId":"` + uuid.NewString() + `","quantity":1,"price":10}],"totalAmount":0}`
	w := doJSON(r, http.MethodPost, "/api/orders", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrder_DuplicateIntent(t *testing.T) {
	store := newFakeCartStore()
	orderStore := newFakeOrderStore()
	r := newTestRouter(store, orderStore)
	userID := uuid.NewString()
	productID := uuid.NewString()

	body := `{
		"userId": "` + userID + `",
		"cartItems": [{"productId":"` + productID + `","quantity":1,"price":10,"name":"Tasse"}],
		"totalAmount": 10,
		"paymentIntentId": "pi_dup"
	}`
	w := doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	first := w.Body.String()

	// Retry du même paiement : même commande renvoyée, pas de doublon.
	w = doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, first, w.Body.String())
	assert.Len(t, orderStore.orders, 1)
}

func TestGetOrders_History(t *testing.T) {
	store := newFakeCartStore()
	orderStore := newFakeOrderStore()
	r := newTestRouter(store, orderStore)
	userID := uuid.NewString()

	body := `{"userId":"` + userID + `","cartItems":[{"productId":"` + uuid.NewString() + `","quantity":1,"price":10,"name":"Tasse"}],"totalAmount":10,"paymentIntentId":"pi_h1"}`
	require.Equal(t, http.StatusCreated, doJSON(r, http.MethodPost, "/api/orders", body).Code)

	w := doJSON(r, http.MethodGet, "/api/orders/"+userID, "")
	require.Equal(t, http.StatusOK, w.Code)

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, 10.0, out[0]["total"])
}

func TestGetOrders_EmptyHistory(t *testing.T) {
	r := newTestRouter(newFakeCartStore(), newFakeOrderStore())

	w := doJSON(r, http.MethodGet, "/api/orders/"+uuid.NewString(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCreateOrder_OtherUserForbidden(t *testing.T) {
	store := newFakeCartStore()
	orderStore := newFakeOrderStore()
	attacker := uuid.NewString()
	victim := uuid.NewString()

	victimCart, err := store.CreateCart(context.Background(), victim)
	require.NoError(t, err)

	r := newTestRouterAs(attacker, store, orderStore)
	body := `{
		"userId": "` + victim + `",
		"cartItems": [{"cartId":"` + victimCart + `","productId":"` + uuid.NewString() + `","quantity":1,"price":10,"name":"Tasse"}],
		"totalAmount": 10,
		"paymentIntentId": "pi_vol"
	}`
	w := doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusForbidden, w.Code)

	// Rien n'a été écrit chez la victime, son panier est intact.
	assert.Empty(t, orderStore.orders)
	assert.Equal(t, victimCart, store.cartsByUser[victim])
}

func TestCreateOrder_OtherUsersCartForbidden(t *testing.T) {
	store := newFakeCartStore()
	orderStore := newFakeOrderStore()
	attacker := uuid.NewString()
	victim := uuid.NewString()

	victimCart, err := store.CreateCart(context.Background(), victim)
	require.NoError(t, err)

	// L'attaquant commande en son propre nom mais cible le panier d'autrui.
	r := newTestRouterAs(attacker, store, orderStore)
	body := `{
		"userId": "` + attacker + `",
		"cartItems": [{"cartId":"` + victimCart + `","productId":"` + uuid.NewString() + `","quantity":1,"price":10,"name":"Tasse"}],
		"totalAmount": 10
	}`
	w := doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, orderStore.orders)
	assert.Equal(t, victimCart, store.cartsByUser[victim])
}

func TestCreateCart_OtherUserForbidden(t *testing.T) {
	store := newFakeCartStore()
	attacker := uuid.NewString()
	victim := uuid.NewString()

	r := newTestRouterAs(attacker, store, newFakeOrderStore())
	w := doJSON(r, http.MethodPost, "/api/carts", `{"userId":"`+victim+`"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, store.cartsByUser[victim])
}

func TestCreateOrder_SameUserAllowed(t *testing.T) {
	store := newFakeCartStore()
	orderStore := newFakeOrderStore()
	userID := uuid.NewString()

	cartID, err := store.CreateCart(context.Background(), userID)
	require.NoError(t, err)

	r := newTestRouterAs(userID, store, orderStore)
	body := `{
		"userId": "` + userID + `",
		"cartItems": [{"cartId":"` + cartID + `","productId":"` + uuid.NewString() + `","quantity":1,"price":10,"name":"Tasse"}],
		"totalAmount": 10,
		"paymentIntentId": "pi_self"
	}`
	w := doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, orderStore.orders, 1)
}

func TestCreateOrder_PaymentStatusExposed(t *testing.T) {
	store := newFakeCartStore()
	r := newTestRouter(store, newFakeOrderStore())
	userID := uuid.NewString()

	// Sans confirmation serveur de l'intent (webhook pas encore passé),
	// la commande est acceptée mais l'état reste "pending".
	body := `{"userId":"` + userID + `","cartItems":[{"productId":"` + uuid.NewString() + `","quantity":1,"price":10,"name":"Tasse"}],"totalAmount":10,"paymentIntentId":"pi_lent"}`
	w := doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"paymentStatus":"pending"`)

	// Sans intent du tout, pas d'état de paiement dans la réponse.
	body = `{"userId":"` + uuid.NewString() + `","cartItems":[{"productId":"` + uuid.NewString() + `","quantity":1,"price":10,"name":"Tasse"}],"totalAmount":10}`
	w = doJSON(r, http.MethodPost, "/api/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "paymentStatus")
}

func TestDeleteCartItem_Idempotent(t *testing.T) {
	store := newFakeCartStore()
	r := newTestRouter(store, newFakeOrderStore())

	cartID, err := store.CreateCart(context.Background(), uuid.NewString())
	require.NoError(t, err)
	productID := uuid.NewString()

	body := `{"cartId":"` + cartID + `","productId":"` + productID + `","action":"increment"}`
	doJSON(r, http.MethodPost, "/api/cartitems", body)

	w := doJSON(r, http.MethodDelete, "/api/cartitems/"+cartID+"/"+productID, "")
	require.Equal(t, http.StatusOK, w.Code)
	// Déjà absente : toujours 200.
	w = doJSON(r, http.MethodDelete, "/api/cartitems/"+cartID+"/"+productID, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
