package handlers

import (
	"errors"
	"log"
	"net/http"

	"boutique_back_end/internal/models"
	"boutique_back_end/internal/storeerr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//
// 🟢 GET /api/carts/:userId — 0 ou 1 panier actif
//
func GetCarts(c *gin.Context) {
	userID := c.Param("userId")
	if _, err := uuid.Parse(userID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID utilisateur invalide"})
		return
	}

	cartID, err := ledger.ActiveCart(c.Request.Context(), userID)
	if err != nil {
		log.Printf("❌ Lecture panier de %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération panier"})
		return
	}

	carts := []models.Cart{}
	if cartID != "" {
		carts = append(carts, models.Cart{ID: cartID, UserID: userID})
	}
	c.JSON(http.StatusOK, carts)
}

//
// 🟢 POST /api/carts — crée un panier vide (ou renvoie l'existant)
//
func CreateCart(c *gin.Context) {
	var input struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId requis"})
		return
	}
	if _, err := uuid.Parse(input.UserID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID utilisateur invalide"})
		return
	}
	// On ne crée jamais de panier au nom d'un autre utilisateur.
	if caller := c.GetString("user_id"); caller != "" && caller != input.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	cartID, err := ledger.GetOrCreateCart(c.Request.Context(), input.UserID)
	if err != nil {
		log.Printf("❌ Création panier pour %s: %v", input.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création panier"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"cartId": cartID})
}

//
// ❌ DELETE /api/carts/:cartId — idempotent
//
func DeleteCart(c *gin.Context) {
	cartID := c.Param("cartId")
	if _, err := uuid.Parse(cartID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID panier invalide"})
		return
	}
	if !callerOwnsCart(c, cartID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	if err := ledger.DeleteCart(c.Request.Context(), cartID); err != nil {
		if errors.Is(err, storeerr.ErrStorage) {
			log.Printf("❌ Suppression panier %s: %v", cartID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression panier"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Panier supprimé"})
}
