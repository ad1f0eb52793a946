package handlers

import (
	"log"
	"net/http"
	"time"

	"boutique_back_end/internal/database"
	"boutique_back_end/internal/models"
	"boutique_back_end/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

//
// 🟢 GET /api/products — catalogue complet
//
func GetProducts(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, description, price, stock, image_urls, tags, created_at, updated_at FROM products`).
		WithContext(c.Request.Context()).Iter()

	var (
		products  []models.Product
		p         models.Product
		createdAt time.Time
		updatedAt time.Time
	)
	for iter.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURLs, &p.Tags, &createdAt, &updatedAt) {
		p.CreatedAt = createdAt
		p.UpdatedAt = updatedAt
		p.ImageURLs = services.SignImageURLs(c.Request.Context(), p.ImageURLs)
		products = append(products, p)
		p = models.Product{}
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Lecture catalogue:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération produits"})
		return
	}

	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, products)
}

//
// 🟢 GET /api/products/:id
//
func GetProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var p models.Product
	err = session.Query(`SELECT product_id, name, description, price, stock, image_urls, tags, created_at, updated_at FROM products WHERE product_id = ?`,
		gocql.UUID(productID)).WithContext(c.Request.Context()).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURLs, &p.Tags, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	p.ImageURLs = services.SignImageURLs(c.Request.Context(), p.ImageURLs)
	c.JSON(http.StatusOK, p)
}

//
// 🔍 GET /api/products/search?q=
//
func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q requis"})
		return
	}

	results, err := services.SearchProducts(c.Request.Context(), query)
	if err != nil {
		log.Println("❌ Recherche produits:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche produits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

//
// 🖼️ POST /api/products/:id/image — upload + ré-indexation
//
func UploadProductImage(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier image requis"})
		return
	}

	objectKey, err := services.UploadProductImage(c.Request.Context(), productID.String(), file)
	if err != nil {
		log.Println("❌ Upload image:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload image"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(`UPDATE products SET image_urls = image_urls + ? WHERE product_id = ?`,
		[]string{objectKey}, gocql.UUID(productID)).WithContext(c.Request.Context()).Exec(); err != nil {
		log.Println("❌ Mise à jour image_urls:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur enregistrement image"})
		return
	}

	// Ré-indexe le produit pour que la recherche reste à jour.
	var p models.Product
	if err := session.Query(`SELECT product_id, name, description, price, stock, image_urls, tags, created_at, updated_at FROM products WHERE product_id = ?`,
		gocql.UUID(productID)).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURLs, &p.Tags, &p.CreatedAt, &p.UpdatedAt); err == nil {
		services.IndexProduct(p)
	}

	signed, _ := services.PresignedImageURL(c.Request.Context(), objectKey)
	c.JSON(http.StatusCreated, gin.H{"key": objectKey, "url": signed})
}
