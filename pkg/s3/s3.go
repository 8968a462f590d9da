package s3

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PhotoStore stores a captured photo and returns the URL to embed in a record.
type PhotoStore interface {
	UploadPhoto(ctx context.Context, objectName string, data []byte) (string, error)
}

// ObjectStorage uploads photos to an S3-compatible bucket.
type ObjectStorage struct {
	Conn   *minio.Client
	bucket string
	region string
	expiry time.Duration
}

// NewObjectStorage initialization
func NewObjectStorage(bucket, region string, expiry time.Duration) *ObjectStorage {
	if region == "" {
		region = "us-east-1"
	}
	return &ObjectStorage{
		bucket: bucket,
		region: region,
		expiry: expiry,
	}
}

// Connect creates the object storage client. No request is made until the first upload.
func (o *ObjectStorage) Connect(endpoint string, accessKeyID string, secretAccessKey string, useSSL bool) error {
	var err error
	o.Conn, err = minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
		Region: o.region,
	})
	if err != nil {
		return fmt.Errorf("failed to create minio client: %w", err)
	}
	return nil
}

// EnsureBucket creates the photo bucket unless it already exists.
func (o *ObjectStorage) EnsureBucket(ctx context.Context) error {
	err := o.Conn.MakeBucket(ctx, o.bucket, minio.MakeBucketOptions{Region: o.region})
	if err != nil {
		exists, errBucketExists := o.Conn.BucketExists(ctx, o.bucket)
		if errBucketExists == nil && exists {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", o.bucket, err)
	}
	return nil
}

// UploadPhoto stores the photo under objectName and returns a presigned GET URL valid for the configured expiry.
func (o *ObjectStorage) UploadPhoto(ctx context.Context, objectName string, data []byte) (string, error) {
	_, err := o.Conn.PutObject(ctx, o.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", objectName, err)
	}

	presignedURL, err := o.Conn.PresignedGetObject(ctx, o.bucket, objectName, o.expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}

	return presignedURL.String(), nil
}

// InlinePhotoStore embeds photos directly in the record as data URLs.
type InlinePhotoStore struct{}

// UploadPhoto returns the photo as a base64 data URL; objectName is ignored.
func (InlinePhotoStore) UploadPhoto(_ context.Context, _ string, data []byte) (string, error) {
	return DataURL(data), nil
}

// DataURL encodes data as a "data:" URL with a sniffed content type.
func DataURL(data []byte) string {
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
