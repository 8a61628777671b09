package blob

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// S3API is the slice of the S3 client this package uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Storage stores blobs in one bucket, encrypted with SSE-KMS when a key
// ARN is configured.
type S3Storage struct {
	client        S3API
	bucket        string
	encryptKeyARN string
	logger        *logrus.Logger
}

// NewS3Storage wraps an existing S3 client.
func NewS3Storage(client S3API, bucket, encryptKeyARN string, logger *logrus.Logger) *S3Storage {
	if logger == nil {
		logger = logrus.New()
	}
	return &S3Storage{client: client, bucket: bucket, encryptKeyARN: encryptKeyARN, logger: logger}
}

// VerifyBucketAccess checks the bucket is reachable with current
// credentials. Called once at startup so misconfiguration fails fast.
func (s *S3Storage) VerifyBucketAccess(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return &BlobError{Op: "VerifyBucketAccess", Err: err}
	}
	return nil
}

func (s *S3Storage) Store(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return &BlobError{Op: "Store", Key: key, Err: err}
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if s.encryptKeyARN != "" {
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.encryptKeyARN)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return &BlobError{Op: "Store", Key: key, Err: err}
	}
	s.logger.WithFields(logrus.Fields{"bucket": s.bucket, "key": key}).Debug("Stored blob")
	return nil
}

func (s *S3Storage) Retrieve(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, &BlobError{Op: "Retrieve", Key: key, Err: err}
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, &BlobError{Op: "Retrieve", Key: key, Err: ErrBlobNotFound}
		}
		return nil, &BlobError{Op: "Retrieve", Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &BlobError{Op: "Retrieve", Key: key, Err: err}
	}
	return data, nil
}

func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, &BlobError{Op: "Exists", Key: key, Err: err}
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, &BlobError{Op: "Exists", Key: key, Err: err}
	}
	return true, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return &BlobError{Op: "Delete", Key: key, Err: err}
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return &BlobError{Op: "Delete", Key: key, Err: err}
	}
	return nil
}

func (s *S3Storage) Close() error { return nil }
