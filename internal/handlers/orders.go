package handlers

import (
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"boutique_back_end/internal/cart"
	"boutique_back_end/internal/models"
	"boutique_back_end/internal/payment"
	"boutique_back_end/internal/storeerr"
	"boutique_back_end/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//
// 🟢 POST /api/orders — finalise le panier payé en commande durable
//
func CreateOrder(c *gin.Context) {
	var input struct {
		UserID          string            `json:"userId" binding:"required"`
		CartItems       []models.CartItem `json:"cartItems"`
		TotalAmount     float64           `json:"totalAmount"`
		PaymentIntentID string            `json:"paymentIntentId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if _, err := uuid.Parse(input.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID utilisateur invalide"})
		return
	}
	// Une commande ne s'écrit que dans l'historique de l'appelant : sinon
	// n'importe quel token permettrait de vider le panier d'un autre user.
	if caller := c.GetString("user_id"); caller != "" && caller != input.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}
	if len(input.CartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le panier ne peut pas être vide"})
		return
	}
	if input.TotalAmount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le total doit être positif"})
		return
	}

	// Prix unitaires figés au moment du chiffrage, jamais relus ici.
	items := make([]models.OrderItem, 0, len(input.CartItems))
	for _, ci := range input.CartItems {
		items = append(items, models.OrderItem{
			ProductID: ci.ProductID,
			Quantity:  ci.Quantity,
			Price:     ci.Price,
			Name:      ci.Name,
		})
	}

	cartID := ""
	if len(input.CartItems) > 0 && input.CartItems[0].CartID != "" {
		cartID = input.CartItems[0].CartID
	} else if active, err := ledger.ActiveCart(c.Request.Context(), input.UserID); err == nil {
		cartID = active
	}
	if cartID != "" && !callerOwnsCart(c, cartID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	totalCents := cart.ToMinorUnits(input.TotalAmount)
	orderID, err := finalizer.FinalizeOrder(c.Request.Context(), input.UserID, cartID, items, totalCents, input.PaymentIntentID)
	if err != nil {
		if errors.Is(err, storeerr.ErrInvalidOrder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Commande invalide"})
			return
		}
		log.Printf("❌ Finalisation commande pour %s: %v", input.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur enregistrement commande"})
		return
	}

	if email := c.GetString("email"); email != "" {
		o := models.Order{
			ID:              orderID,
			UserID:          input.UserID,
			Total:           float64(totalCents) / 100,
			OrderDate:       time.Now().UTC(),
			PaymentIntentID: input.PaymentIntentID,
		}
		go sendOrderConfirmation(email, o, items)
	}

	resp := gin.H{"orderId": orderID}
	if input.PaymentIntentID != "" {
		// Le webhook marque l'intent payé côté serveur ; la confirmation
		// client arrive souvent avant lui, on accepte donc la commande et
		// on expose l'état de la contre-vérification.
		if payment.IntentStatus(c.Request.Context(), input.PaymentIntentID) == "paid" {
			resp["paymentStatus"] = "confirmed"
		} else {
			resp["paymentStatus"] = "pending"
			log.Printf("⚠️ Intent %s pas encore confirmé côté serveur (commande %s acceptée)", input.PaymentIntentID, orderID)
		}
	}
	c.JSON(http.StatusCreated, resp)
}

//
// 🟢 GET /api/orders/:userId — historique, le plus récent d'abord
//
func GetOrders(c *gin.Context) {
	userID := c.Param("userId")
	if _, err := uuid.Parse(userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID utilisateur invalide"})
		return
	}

	orders, err := finalizer.ListOrders(c.Request.Context(), userID)
	if err != nil {
		log.Printf("❌ Lecture commandes de %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	out := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		out = append(out, gin.H{
			"id":         o.ID,
			"total":      o.Total,
			"order_date": o.OrderDate,
		})
	}
	c.JSON(http.StatusOK, out)
}

// sendOrderConfirmation génère la facture PDF et envoie l'e-mail de
// confirmation. Best-effort : la commande est déjà écrite, on se
// contente de logger les échecs.
func sendOrderConfirmation(email string, o models.Order, items []models.OrderItem) {
	qr := ""
	if iban := os.Getenv("SEPA_IBAN"); iban != "" {
		generated, err := utils.GenerateSepaQR(iban, os.Getenv("SEPA_BIC"), os.Getenv("SEPA_NAME"), o.ID, o.Total)
		if err == nil {
			qr = generated
		}
	}

	var pdf []byte
	pdf, err := utils.RenderInvoicePDF(utils.InvoiceHTML(o, items, qr))
	if err != nil {
		log.Printf("⚠️ Génération facture PDF %s échouée: %v", o.ID, err)
		pdf = nil
	}

	if err := utils.SendOrderConfirmation(email, o, items, pdf); err != nil {
		log.Printf("⚠️ E-mail de confirmation %s non envoyé: %v", o.ID, err)
	}
}
