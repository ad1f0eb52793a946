package utils

import (
	"testing"

	"boutique_back_end/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-de-test")

	user := models.User{ID: "user-1", Email: "claire@example.com"}
	signed, err := GenerateJWT(user)
	require.NoError(t, err)

	// La vérification passe par le même accesseur que l'émission.
	token, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return JWTSecret(), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "user-1", claims["user_id"])
	assert.Equal(t, "claire@example.com", claims["email"])
	assert.NotNil(t, claims["exp"])
}
