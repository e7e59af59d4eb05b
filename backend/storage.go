package backend

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/snap-point/gallery/apperrors"
)

// ObjectAPI is the part of the S3 client the storage layer uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	PutBucketCors(ctx context.Context, params *s3.PutBucketCorsInput, optFns ...func(*s3.Options)) (*s3.PutBucketCorsOutput, error)
}

// NewS3Client builds a client for an S3-compatible endpoint such as R2.
func NewS3Client(endpoint, accessKeyID, secretAccessKey, region string) *s3.Client {
	return s3.New(s3.Options{
		BaseEndpoint: aws.String(endpoint),
		Credentials: credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		),
		Region: region,
	})
}

type Storage struct {
	api       ObjectAPI
	bucket    string
	publicURL string
}

func NewStorage(api ObjectAPI, bucket, publicURL string) *Storage {
	return &Storage{api: api, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *Storage) Bucket() string { return s.bucket }

// Upload stores data under path. Existing objects are overwritten.
func (s *Storage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(path),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("max-age=3600"),
	})
	return apperrors.Backend("upload object", err)
}

func (s *Storage) Remove(ctx context.Context, path string) error {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	return apperrors.Backend("remove object", err)
}

// PublicURL returns the address browsers load path from.
func (s *Storage) PublicURL(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicURL + "/" + strings.Join(segments, "/")
}

type CORSPolicy struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAgeSeconds  int32
}

// DefaultCORSPolicy lets any origin read public objects.
func DefaultCORSPolicy() CORSPolicy {
	return CORSPolicy{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD"},
		AllowedHeaders: []string{"*"},
		MaxAgeSeconds:  3600,
	}
}

// ConfigureCORS replaces the bucket CORS rules. Needs the service key.
func (s *Storage) ConfigureCORS(ctx context.Context, policy CORSPolicy) error {
	_, err := s.api.PutBucketCors(ctx, &s3.PutBucketCorsInput{
		Bucket: aws.String(s.bucket),
		CORSConfiguration: &types.CORSConfiguration{
			CORSRules: []types.CORSRule{{
				AllowedOrigins: policy.AllowedOrigins,
				AllowedMethods: policy.AllowedMethods,
				AllowedHeaders: policy.AllowedHeaders,
				MaxAgeSeconds:  aws.Int32(policy.MaxAgeSeconds),
			}},
		},
	})
	return apperrors.Backend("configure cors", err)
}
