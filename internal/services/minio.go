package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"boutique_back_end/internal/database"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

func imageBucket() string {
	bucket := os.Getenv("MINIO_BUCKET")
	if bucket == "" {
		bucket = "product-images"
	}
	return bucket
}

// UploadProductImage stocke une image produit et renvoie sa clé objet.
func UploadProductImage(ctx context.Context, productID string, file *multipart.FileHeader) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	objectKey := fmt.Sprintf("%s/%s%s", productID, uuid.NewString(), path.Ext(file.Filename))
	_, err = database.MinIO.PutObject(ctx, imageBucket(), objectKey, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		return "", err
	}

	return objectKey, nil
}

// PresignedImageURL renvoie une URL signée de lecture (1h) pour une clé objet.
func PresignedImageURL(ctx context.Context, objectKey string) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	u, err := database.MinIO.PresignedGetObject(ctx, imageBucket(), objectKey, time.Hour, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// SignImageURLs remplace les clés objets par des URLs signées ; les URLs
// externes déjà absolues sont laissées telles quelles.
func SignImageURLs(ctx context.Context, keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if database.MinIO == nil || strings.HasPrefix(key, "http") {
			out = append(out, key)
			continue
		}
		signed, err := PresignedImageURL(ctx, key)
		if err != nil {
			out = append(out, key)
			continue
		}
		out = append(out, signed)
	}
	return out
}
