package s3

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client архивирует сохраненные журналы нарушений в MinIO
type Client struct {
	client *minio.Client
	bucket string
}

// NewMinioClient создает клиента MinIO, соединение открывается при первом запросе
func NewMinioClient(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Client, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &Client{client: client, bucket: bucket}, nil
}

// EnsureBucket создает бакет, если его еще нет
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if exists {
		return nil
	}

	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", c.bucket, err)
	}
	return nil
}

// ArchiveLog загружает файл журнала в папку сессии и возвращает путь объекта
func (c *Client) ArchiveLog(ctx context.Context, sessionID, filePath string) (string, error) {
	objectPath := ObjectPath(sessionID)

	_, err := c.client.FPutObject(ctx, c.bucket, objectPath, filePath, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive incidents log to S3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", c.bucket, objectPath), nil
}

// ObjectPath путь объекта журнала внутри бакета
func ObjectPath(sessionID string) string {
	return fmt.Sprintf("%s/violations.json", sessionID)
}
