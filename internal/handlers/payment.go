package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"boutique_back_end/internal/payment"
	"boutique_back_end/internal/storeerr"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
)

//
// 💳 POST /api/create-payment-intent
//
func CreatePaymentIntent(c *gin.Context) {
	var input struct {
		Amount int64 `json:"amount"`
	}
	// Le montant arrive en unités mineures (centimes) : un entier strict.
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Montant invalide"})
		return
	}
	if input.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le montant doit être un entier positif"})
		return
	}

	metadata := map[string]string{}
	if userID := c.GetString("user_id"); userID != "" {
		metadata["user_id"] = userID
	}
	if email := c.GetString("email"); email != "" {
		metadata["email"] = email
	}

	clientSecret, intentID, err := payment.CreateIntent(c.Request.Context(), input.Amount, metadata)
	if err != nil {
		if errors.Is(err, storeerr.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Le montant doit être un entier positif"})
			return
		}
		log.Printf("❌ Création PaymentIntent: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clientSecret": clientSecret,
		"paymentId":    intentID,
	})
}

//
// 📥 POST /api/stripe/webhook
//
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	event, err := payment.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		log.Println("❌ Webhook Stripe invalide:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook invalide"})
		return
	}

	if event.Type != "payment_intent.succeeded" {
		log.Printf("ℹ️ Événement Stripe ignoré : %s", event.Type)
		c.Status(http.StatusOK)
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Println("❌ Erreur décodage PaymentIntent:", err)
		c.Status(http.StatusOK)
		return
	}

	payment.MarkIntentPaid(c.Request.Context(), pi.ID)
	log.Printf("✅ Paiement confirmé côté serveur : %s", pi.ID)
	c.Status(http.StatusOK)
}
