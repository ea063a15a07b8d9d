package files

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/mrembo/urembo/core"
	"github.com/mrembo/urembo/core/lesson"
)

type minioStore struct {
	client *minio.Client
	bucket string
}

var _ lesson.FileStore = (*minioStore)(nil)

// NewMinioStore connects to an S3-compatible object store and makes sure
// the configured bucket exists.
func NewMinioStore(conf core.StorageConfig) (lesson.FileStore, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating object store client")
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, errors.Wrap(err, "checking bucket")
	}
	if !exists {
		if err = client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, errors.Wrap(err, "creating bucket")
		}
	}
	return &minioStore{client: client, bucket: conf.Bucket}, nil
}

func (s *minioStore) Save(ctx context.Context, path string, content io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, content, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return errors.Wrap(err, "uploading file")
}

func (s *minioStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "downloading file")
	}
	// GetObject is lazy; surface missing objects now
	if _, err = obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, errors.Wrap(err, "downloading file")
	}
	return obj, nil
}

func (s *minioStore) Remove(ctx context.Context, path string) error {
	err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
	return errors.Wrap(err, "removing file")
}
