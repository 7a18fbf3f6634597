// Package origin implements the S3-compatible origin client the proxy
// fetches from. It performs single requests only; retry policy lives with
// the callers.
package origin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/sagarc03/edgestow"
)

const defaultPartSize = 5 * 1024 * 1024

// Config holds the origin connection settings.
type Config struct {
	// Endpoint overrides the AWS endpoint, for MinIO and other
	// S3-compatible stores. Empty means the SDK default.
	Endpoint string `mapstructure:"endpoint"`
	Region   string `mapstructure:"region"`
	Bucket   string `mapstructure:"bucket"`

	// Static credentials. When both are empty the SDK's default credential
	// chain (env, shared config, instance role) applies.
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`

	// UsePathStyle addresses the bucket in the path instead of the host,
	// required by most self-hosted S3 implementations.
	UsePathStyle bool `mapstructure:"use_path_style"`

	// PartSize for multipart uploads, in bytes (default: 5 MiB).
	PartSize int64 `mapstructure:"part_size"`
}

// api is the subset of the S3 client the origin uses, narrowed so tests can
// substitute a fake without a live endpoint.
type api interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// uploader abstracts manager.Uploader for tests.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Client talks to one bucket of an S3-compatible origin.
type Client struct {
	api      api
	uploader uploader
	bucket   string
}

// NewClient builds the origin client from config, loading AWS settings from
// the usual chain and applying the overrides in cfg.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("new origin client: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("new origin client: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		// Retrying is the fetcher's job; the SDK must not stack its own.
		o.RetryMaxAttempts = 1
	})

	partSize := cfg.PartSize
	if partSize <= 0 {
		partSize = defaultPartSize
	}
	up := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})

	return &Client{api: client, uploader: up, bucket: cfg.Bucket}, nil
}

// newClientWithAPI wires a client over an existing API implementation.
// Tests use it to substitute fakes.
func newClientWithAPI(a api, up uploader, bucket string) *Client {
	return &Client{api: a, uploader: up, bucket: bucket}
}

// Fetch performs one GET or HEAD against the origin.
//
// Origin responses carried inside SDK errors (404, 403, 5xx and the rest)
// are converted back into plain FetchResults so the caller can tell a
// definitive origin answer from a transport failure: only errors with no
// usable HTTP status are returned as errors.
func (c *Client) Fetch(ctx context.Context, req edgestow.FetchRequest) (*edgestow.FetchResult, error) {
	switch req.Method {
	case http.MethodHead:
		return c.head(ctx, req)
	case http.MethodGet, "":
		return c.get(ctx, req)
	default:
		return nil, fmt.Errorf("fetch %s: method %s not supported: %w", req.Key, req.Method, edgestow.ErrInvalidInput)
	}
}

func (c *Client) get(ctx context.Context, req edgestow.FetchRequest) (*edgestow.FetchResult, error) {
	input := &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(req.Key),
	}
	if req.Range != "" {
		input.Range = aws.String(req.Range)
	}

	out, err := c.api.GetObject(ctx, input)
	if err != nil {
		if res, ok := resultFromError(err); ok {
			return res, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", req.Key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", req.Key, err)
	}

	status := http.StatusOK
	if out.ContentRange != nil {
		status = http.StatusPartialContent
	}
	return &edgestow.FetchResult{
		Status:  status,
		Headers: getObjectHeaders(out),
		Body:    body,
	}, nil
}

func (c *Client) head(ctx context.Context, req edgestow.FetchRequest) (*edgestow.FetchResult, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(req.Key),
	})
	if err != nil {
		if res, ok := resultFromError(err); ok {
			return res, nil
		}
		return nil, fmt.Errorf("stat %s: %w", req.Key, err)
	}

	return &edgestow.FetchResult{
		Status:  http.StatusOK,
		Headers: headObjectHeaders(out),
	}, nil
}

func getObjectHeaders(out *s3.GetObjectOutput) map[string]string {
	h := make(map[string]string, 8)
	setHeader(h, "Content-Type", out.ContentType)
	setHeader(h, "ETag", out.ETag)
	setHeader(h, "Cache-Control", out.CacheControl)
	setHeader(h, "Content-Encoding", out.ContentEncoding)
	setHeader(h, "Content-Range", out.ContentRange)
	setHeader(h, "Expires", out.ExpiresString)
	if out.ContentLength != nil {
		h["Content-Length"] = strconv.FormatInt(*out.ContentLength, 10)
	}
	if out.LastModified != nil {
		h["Last-Modified"] = out.LastModified.UTC().Format(http.TimeFormat)
	}
	h["Accept-Ranges"] = "bytes"
	return h
}

func headObjectHeaders(out *s3.HeadObjectOutput) map[string]string {
	h := make(map[string]string, 8)
	setHeader(h, "Content-Type", out.ContentType)
	setHeader(h, "ETag", out.ETag)
	setHeader(h, "Cache-Control", out.CacheControl)
	setHeader(h, "Content-Encoding", out.ContentEncoding)
	setHeader(h, "Expires", out.ExpiresString)
	if out.ContentLength != nil {
		h["Content-Length"] = strconv.FormatInt(*out.ContentLength, 10)
	}
	if out.LastModified != nil {
		h["Last-Modified"] = out.LastModified.UTC().Format(http.TimeFormat)
	}
	h["Accept-Ranges"] = "bytes"
	return h
}

func setHeader(h map[string]string, name string, value *string) {
	if value != nil && *value != "" {
		h[name] = *value
	}
}
