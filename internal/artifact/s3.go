package artifact

import (
	"context"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/askiada/go-mlpipeline/internal/config"
)

// S3Store keeps artifacts in an S3 compatible bucket.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Client creates the minio client described by cfg.
func NewS3Client(cfg config.S3Config) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create s3 client for %s", cfg.Endpoint)
	}

	return client, nil
}

// NewS3Store returns a store writing to bucket, created when missing.
func NewS3Store(ctx context.Context, client *minio.Client, bucket, region string) (*S3Store, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to check bucket %s", bucket)
	}
	if !exists {
		err = client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region})
		if err != nil {
			return nil, errors.Wrapf(err, "unable to create bucket %s", bucket)
		}
	}

	return &S3Store{client: client, bucket: bucket}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return errors.Wrapf(err, "unable to put %s", key)
	}

	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}

	// GetObject is lazy: Stat surfaces a missing key.
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to get %s", key)
	}
	_, err = obj.Stat()
	if err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, errors.Wrap(ErrNotFound, key)
		}

		return nil, errors.Wrapf(err, "unable to stat %s", key)
	}

	return obj, nil
}

func (s *S3Store) URI(key string) string {
	return "s3://" + s.bucket + "/" + key
}

var _ Store = (*S3Store)(nil)
