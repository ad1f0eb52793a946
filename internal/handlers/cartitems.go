package handlers

import (
	"errors"
	"log"
	"net/http"

	"boutique_back_end/internal/cart"
	"boutique_back_end/internal/storeerr"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

//
// 🟢 GET /api/cartitems/:cartId — lignes enrichies (nom + prix catalogue)
//
func GetCartItems(c *gin.Context) {
	cartID := c.Param("cartId")
	if _, err := uuid.Parse(cartID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID panier invalide"})
		return
	}
	if !callerOwnsCart(c, cartID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	items, err := ledger.ListLineItems(c.Request.Context(), cartID)
	if err != nil {
		log.Printf("❌ Lecture lignes du panier %s: %v", cartID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération panier"})
		return
	}

	c.JSON(http.StatusOK, items)
}

//
// 🟢 POST /api/cartitems — increment / decrement d'une ligne
//
func UpsertCartItem(c *gin.Context) {
	var input struct {
		CartID    string `json:"cartId" binding:"required"`
		ProductID string `json:"productId" binding:"required"`
		Action    string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cartId, productId et action requis"})
		return
	}

	action := cart.Action(input.Action)
	if action != cart.ActionIncrement && action != cart.ActionDecrement {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action doit être increment ou decrement"})
		return
	}
	if _, err := uuid.Parse(input.CartID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID panier invalide"})
		return
	}
	if _, err := uuid.Parse(input.ProductID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}
	if !callerOwnsCart(c, input.CartID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	quantity, err := ledger.UpsertLineItem(c.Request.Context(), input.CartID, input.ProductID, action)
	if err != nil {
		if errors.Is(err, storeerr.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Produit absent du panier"})
			return
		}
		log.Printf("❌ Mutation ligne (%s, %s): %v", input.CartID, input.ProductID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour panier"})
		return
	}

	if quantity == 0 {
		c.JSON(http.StatusOK, gin.H{"quantity": 0, "removed": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"quantity": quantity})
}

//
// ❌ DELETE /api/cartitems/:cartId/:productId — idempotent
//
func DeleteCartItem(c *gin.Context) {
	cartID := c.Param("cartId")
	productID := c.Param("productId")
	if _, err := uuid.Parse(cartID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID panier invalide"})
		return
	}
	if _, err := uuid.Parse(productID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}
	if !callerOwnsCart(c, cartID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	if err := ledger.RemoveLineItem(c.Request.Context(), cartID, productID); err != nil {
		log.Printf("❌ Suppression ligne (%s, %s): %v", cartID, productID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression ligne"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé du panier"})
}
