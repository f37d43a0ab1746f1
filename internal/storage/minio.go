package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage implements Storage over a MinIO (or any S3-compatible)
// backend. Switching providers is an endpoint/credentials change only.
type MinioStorage struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

// NewMinioStorage creates the client and ensures the bucket exists.
func NewMinioStorage(endpoint, accessKey, secretKey, bucket, publicBase string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Printf("storage: created bucket %q", bucket)
	}

	return &MinioStorage{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}, nil
}

// OpenStream starts a PutObject fed by the returned stream's writer. Size
// is unknown up front, so the object is sent with streaming signature
// (size -1); the provider reports the final byte count on completion.
func (s *MinioStorage) OpenStream(ctx context.Context, key, contentType string) (*UploadStream, error) {
	if key == "" {
		return nil, &ProviderError{Op: "open", Key: key, Err: errors.New("empty object key")}
	}

	stream := newUploadStream(func(r io.Reader) (*UploadResult, error) {
		info, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{
			ContentType: contentType,
		})
		if err != nil {
			return nil, &ProviderError{Op: "put", Key: key, Retryable: isTransient(err), Err: err}
		}
		return &UploadResult{
			Size:   info.Size,
			URL:    s.PublicURL(info.Key),
			Key:    info.Key,
			Format: contentType,
		}, nil
	})
	return stream, nil
}

func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return &ProviderError{Op: "delete", Key: key, Retryable: isTransient(err), Err: err}
	}
	return nil
}

func (s *MinioStorage) PublicURL(key string) string {
	return s.publicBase + "/" + key
}

func (s *MinioStorage) Provider() string { return "minio" }

// isTransient classifies provider failures; network trouble and
// server-side errors are worth retrying, auth and key problems are not.
func isTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "SlowDown", "InternalError", "ServiceUnavailable", "RequestTimeout":
		return true
	}
	return false
}
