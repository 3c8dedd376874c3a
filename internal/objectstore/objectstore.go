// Package objectstore persists generated media and uploaded assets in an
// S3-compatible bucket. Stored objects are addressed by name under a
// per-session prefix and exposed through a public URL.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/adpilot-ai/adpilot/internal/fault"
)

// Object identifies a stored object.
type Object struct {
	// Name is the full object key within the bucket.
	Name string

	// URL is the public address of the object.
	URL string
}

// Store persists binary objects.
type Store interface {
	// Put stores data under name with the given content type.
	Put(ctx context.Context, name string, data io.Reader, contentType string) (Object, error)

	// Get retrieves a stored object.
	Get(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a stored object.
	Delete(ctx context.Context, name string) error
}

// Config configures the S3-compatible store.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	UsePathStyle    bool
}

// S3Store stores objects in an S3-compatible bucket.
type S3Store struct {
	client        *s3.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewS3Store creates an S3-backed store. Endpoint overrides target
// MinIO-style deployments.
func NewS3Store(ctx context.Context, cfg Config) (*S3Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("object store bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	publicBase := strings.TrimRight(cfg.PublicBaseURL, "/")
	if publicBase == "" && endpoint != "" {
		publicBase = strings.TrimRight(endpoint, "/") + "/" + bucket
	}
	if publicBase == "" {
		publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}

	return &S3Store{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(cfg.Prefix, "/"),
		publicBaseURL: publicBase,
	}, nil
}

// Put stores data under name.
func (s *S3Store) Put(ctx context.Context, name string, data io.Reader, contentType string) (Object, error) {
	key := s.objectKey(name)
	input := &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   data,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Object{}, fault.Wrap(fault.CodeBackendConnection, fmt.Errorf("s3 put object: %w", err))
	}
	return Object{Name: key, URL: s.publicBaseURL + "/" + key}, nil
}

// Get retrieves a stored object.
func (s *S3Store) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.objectKey(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fault.Wrap(fault.CodeBackendConnection, fmt.Errorf("s3 get object: %w", err))
	}
	return out.Body, nil
}

// Delete removes a stored object.
func (s *S3Store) Delete(ctx context.Context, name string) error {
	key := s.objectKey(name)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}); err != nil {
		return fault.Wrap(fault.CodeBackendConnection, fmt.Errorf("s3 delete object: %w", err))
	}
	return nil
}

func (s *S3Store) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// MemoryStore is an in-process Store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	BaseURL string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string][]byte),
		BaseURL: "https://objects.test",
	}
}

// Put stores data under name.
func (m *MemoryStore) Put(_ context.Context, name string, data io.Reader, _ string) (Object, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return Object{}, err
	}
	m.mu.Lock()
	m.objects[name] = raw
	m.mu.Unlock()
	return Object{Name: name, URL: m.BaseURL + "/" + name}, nil
}

// Get retrieves a stored object.
func (m *MemoryStore) Get(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.RLock()
	raw, ok := m.objects[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fault.Newf(fault.CodeNotFound, "object %q not found", name)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

// Delete removes a stored object.
func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	delete(m.objects, name)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
