package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"accountmarket/internal/domain/service"
	"accountmarket/pkg/logger"
)

// CloudStorageClient stores transfer proofs and dispute evidence in GCS.
type CloudStorageClient struct {
	client         *storage.Client
	bucketName     string
	allowedOrigins []string
}

// NewCloudStorageClient opens the bucket. Browsers upload straight to signed
// URLs, so the bucket CORS policy is seeded with allowedOrigins ("*" when
// empty) unless one is already configured.
func NewCloudStorageClient(ctx context.Context, bucketName, credentialsPath string, allowedOrigins []string) (*CloudStorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	storageClient := &CloudStorageClient{
		client:         client,
		bucketName:     bucketName,
		allowedOrigins: allowedOrigins,
	}

	if err := storageClient.setBucketCORS(ctx); err != nil {
		logger.Warn("Failed to set CORS configuration: %v", err)
	}

	return storageClient, nil
}

func (c *CloudStorageClient) setBucketCORS(ctx context.Context) error {
	bucket := c.client.Bucket(c.bucketName)

	corsConfig := storage.CORS{
		MaxAge:          3600,
		Methods:         []string{"GET", "PUT", "OPTIONS"},
		Origins:         c.allowedOrigins,
		ResponseHeaders: []string{"Content-Type", "x-goog-resumable"},
	}

	bucketAttrs, err := bucket.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}

	if len(bucketAttrs.CORS) == 0 {
		if _, err := bucket.Update(ctx, storage.BucketAttrsToUpdate{CORS: []storage.CORS{corsConfig}}); err != nil {
			return fmt.Errorf("failed to update bucket CORS: %v", err)
		}
	}

	return nil
}

// ObjectName builds the storage path for an upload. Evidence is private
// unless explicitly published.
func ObjectName(fileType, folder string, isPublic bool, now time.Time) string {
	if !strings.HasPrefix(folder, "public/") && !strings.HasPrefix(folder, "private/") {
		if isPublic {
			folder = "public/" + folder
		} else {
			folder = "private/" + folder
		}
	}

	filename := fmt.Sprintf("%s/%s-%s", folder, uuid.New().String(), now.Format("20060102150405"))

	switch fileType {
	case "image/jpeg", "image/jpg":
		filename += ".jpg"
	case "image/png":
		filename += ".png"
	case "image/webp":
		filename += ".webp"
	case "video/mp4":
		filename += ".mp4"
	case "application/pdf":
		filename += ".pdf"
	default:
		filename += ".bin"
	}
	return filename
}

func (c *CloudStorageClient) objectURL(name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, name)
}

func (c *CloudStorageClient) UploadFile(ctx context.Context, file io.Reader, fileType, folder string, isPublic bool) (string, error) {
	filename := ObjectName(fileType, folder, isPublic, time.Now())

	obj := c.client.Bucket(c.bucketName).Object(filename)
	wc := obj.NewWriter(ctx)
	wc.ContentType = fileType

	if _, err := io.Copy(wc, file); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %v", err)
	}

	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	if isPublic {
		if err := obj.ACL().Set(ctx, storage.AllUsers, storage.RoleReader); err != nil {
			return "", fmt.Errorf("failed to set ACL: %v", err)
		}
	}

	return c.objectURL(filename), nil
}

// GenerateSignedUploadURL returns a PUT URL valid for 15 minutes and the
// object URL the client should later submit as proof.
func (c *CloudStorageClient) GenerateSignedUploadURL(ctx context.Context, fileType, folder string) (string, string, error) {
	filename := ObjectName(fileType, folder, false, time.Now())

	opts := &storage.SignedURLOptions{
		Method:      http.MethodPut,
		ContentType: fileType,
		Expires:     time.Now().Add(15 * time.Minute),
	}

	url, err := c.client.Bucket(c.bucketName).SignedURL(filename, opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate signed URL: %v", err)
	}

	return url, c.objectURL(filename), nil
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}

var _ service.EvidenceStorage = (*CloudStorageClient)(nil)
