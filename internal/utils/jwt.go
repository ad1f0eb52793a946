package utils

import (
	"os"
	"time"

	"boutique_back_end/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

// JWTSecret est la clé de signature partagée entre émission et
// vérification. Lue à chaque appel : le .env est chargé après l'init
// des packages, une capture au démarrage verrait une clé vide.
func JWTSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// GenerateJWT émet le token de session de l'utilisateur (HS256, 24h).
func GenerateJWT(user models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(JWTSecret())
}
