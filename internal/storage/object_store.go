// Package storage uploads item images and receipts to an S3-compatible
// bucket (Cloudflare R2 in production).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

const (
	immutableCacheControl = "public, max-age=31536000, immutable"
	privateCacheControl   = "private, no-store"
)

// Uploader is the part of the object store the handlers and workers use.
type Uploader interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string, cacheControl string) (string, error)
	DeleteURL(ctx context.Context, raw string) error
}

type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicBaseURL   string
	StorageClass    string
}

type ObjectStore struct {
	bucket       string
	publicBase   string
	storageClass *types.StorageClass
	client       *s3.Client
}

// normalized trims every field and fills the defaults an R2 bucket needs.
func (c Config) normalized() (Config, error) {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.PublicBaseURL), "/")
	c.Region = strings.TrimSpace(c.Region)
	c.AccessKeyID = strings.TrimSpace(c.AccessKeyID)
	c.SecretAccessKey = strings.TrimSpace(c.SecretAccessKey)

	var missing []string
	if c.Endpoint == "" {
		missing = append(missing, "endpoint")
	}
	if c.Bucket == "" {
		missing = append(missing, "bucket")
	}
	if c.PublicBaseURL == "" {
		missing = append(missing, "public base url")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("object store config missing %s", strings.Join(missing, ", "))
	}
	if !strings.Contains(c.Endpoint, "://") {
		c.Endpoint = "https://" + c.Endpoint
	}
	if c.Region == "" {
		c.Region = "auto"
	}
	return c, nil
}

func NewObjectStore(ctx context.Context, cfg Config) (*ObjectStore, error) {
	cfg, err := cfg.normalized()
	if err != nil {
		return nil, err
	}
	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region), awsconfig.WithCredentialsProvider(creds))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := cfg.Endpoint
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = &endpoint
		// R2 needs path-style addressing.
		o.UsePathStyle = true
	})
	return &ObjectStore{
		bucket:       cfg.Bucket,
		publicBase:   cfg.PublicBaseURL,
		storageClass: parseStorageClass(cfg.StorageClass),
		client:       client,
	}, nil
}

func (s *ObjectStore) PublicURL(key string) string {
	return s.publicBase + "/" + strings.TrimLeft(key, "/")
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// PutObject uploads body under key and returns its public URL. Objects are
// cached as immutable unless cacheControl says otherwise.
func (s *ObjectStore) PutObject(ctx context.Context, key string, body []byte, contentType string, cacheControl string) (string, error) {
	key = strings.TrimLeft(key, "/")
	input := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(orDefault(contentType, "application/octet-stream")),
		CacheControl: aws.String(orDefault(cacheControl, immutableCacheControl)),
	}
	if s.storageClass != nil {
		input.StorageClass = *s.storageClass
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// ResolveKeyFromURL maps a URL produced by PublicURL, or a path-style bucket
// URL, back to its object key.
func (s *ObjectStore) ResolveKeyFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if key, ok := strings.CutPrefix(raw, s.publicBase+"/"); ok && raw != "" {
		return strings.TrimLeft(key, "/"), key != ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	bucket, key, ok := strings.Cut(strings.TrimLeft(parsed.Path, "/"), "/")
	if !ok || bucket != s.bucket || key == "" {
		return "", false
	}
	return key, true
}

// DeleteURL removes the object behind a URL this store handed out. URLs
// pointing elsewhere (seeded sample images) are left alone.
func (s *ObjectStore) DeleteURL(ctx context.Context, raw string) error {
	key, ok := s.ResolveKeyFromURL(raw)
	if !ok {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// ItemImageKey names an uploaded item image variant.
func ItemImageKey(itemID int64, variant string) string {
	return fmt.Sprintf("items/%d/%s-%s.jpg", itemID, variant, uuid.NewString())
}

// ReceiptKey names a rendered receipt.
func ReceiptKey(orderID int64) string {
	return fmt.Sprintf("receipts/%d/%s.pdf", orderID, uuid.NewString())
}

// ReceiptCacheControl keeps receipts out of shared caches.
func ReceiptCacheControl() string {
	return privateCacheControl
}

func parseStorageClass(v string) *types.StorageClass {
	v = strings.TrimSpace(strings.ToUpper(v))
	if v == "" {
		return nil
	}
	sc := types.StorageClass(v)
	return &sc
}
