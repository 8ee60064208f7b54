// Package s3 implements the blob Store on an S3-compatible bucket (AWS S3
// or MinIO). Keys map to object keys directly.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"cheeseshop/internal/blob/core"
)

const (
	defaultRegion = "us-east-1"
	defaultExpiry = 15 * time.Minute
)

// Config holds construction parameters. Credentials fall back to the
// default AWS chain when AccessKeyID is empty.
type Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	SessionToken    string `yaml:"-"`
}

// Store implements core.Store for a single bucket.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New creates an S3 blob store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newFromAWS(awsCfg, cfg, nil), nil
}

func newFromAWS(awsCfg aws.Config, cfg Config, httpClient *http.Client) *Store {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if httpClient != nil {
			o.HTTPClient = httpClient
		}
	})
	return &Store{client: client, presign: s3.NewPresignClient(client), bucket: cfg.Bucket}
}

// Bucket returns the configured bucket name.
func (s *Store) Bucket() string { return s.bucket }

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverS3 }

// Put emulates create-only semantics with a HEAD before the PUT.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	key, err := core.CleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	if _, err := s.Head(ctx, key); err == nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, core.ErrExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Info{}, err
	}
	input := &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key), Body: r}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = core.CloneMetadata(opts.Metadata)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return s.Head(ctx, key)
}

// Get streams the object body. The caller closes the reader.
func (s *Store) Get(ctx context.Context, key string) (core.Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return core.Info{}, nil, classify("get", key, err)
	}
	info := core.Info{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		Metadata:     out.Metadata,
		LastModified: aws.ToTime(out.LastModified),
	}
	return info, out.Body, nil
}

// Head returns object metadata.
func (s *Store) Head(ctx context.Context, key string) (core.Info, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return core.Info{}, classify("head", key, err)
	}
	return core.Info{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		Metadata:     out.Metadata,
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Delete removes the object, reporting false when it did not exist.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.Head(ctx, key); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return false, fmt.Errorf("delete %s: %w", key, err)
	}
	return true, nil
}

// List pages through ListObjectsV2 for prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			infos = append(infos, core.Info{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// SignedURL presigns a GET for key.
func (s *Store) SignedURL(ctx context.Context, key string, opts core.SignedURLOptions) (string, error) {
	expiry := opts.Expiry
	if expiry <= 0 {
		expiry = defaultExpiry
	}
	out, err := s.presign.PresignGetObject(ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)},
		func(po *s3.PresignOptions) { po.Expires = expiry },
	)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return out.URL, nil
}

// classify maps 404 responses to core.ErrNotFound.
func classify(op, key string, err error) error {
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, key, core.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}
