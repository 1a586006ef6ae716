package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source is the interface for reading an artifact from a location.
type Source interface {
	// Read returns a reader for the data.
	Read(ctx context.Context) (io.ReadCloser, error)
}

// Sink is the interface for writing an artifact to a location.
type Sink interface {
	// Write stores the data.
	Write(ctx context.Context, data io.Reader) error
}

// S3Options configures access to S3 or an S3-compatible store.
type S3Options struct {
	Region          string
	Endpoint        string // custom endpoint for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
}

// ResolveSource creates a Source from a path or URI. Supported schemes are
// s3://bucket/key, http(s):// and plain filesystem paths.
func ResolveSource(uri string, s3opts S3Options) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		bucket, key, err := splitS3URI(uri)
		if err != nil {
			return nil, err
		}
		return &S3Object{bucket: bucket, key: key, opts: s3opts}, nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return &URLSource{url: uri}, nil
	case uri == "":
		return nil, fmt.Errorf("no input location specified")
	default:
		return &LocalFile{path: uri}, nil
	}
}

// ResolveSink creates a Sink from a path or URI. Supported schemes are
// s3://bucket/key and plain filesystem paths.
func ResolveSink(uri string, s3opts S3Options) (Sink, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		bucket, key, err := splitS3URI(uri)
		if err != nil {
			return nil, err
		}
		return &S3Object{bucket: bucket, key: key, opts: s3opts}, nil
	case uri == "":
		return nil, fmt.Errorf("no output location specified")
	default:
		return &LocalFile{path: uri}, nil
	}
}

func splitS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URI %q: %w", uri, err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: want s3://bucket/key", uri)
	}
	return bucket, key, nil
}

// LocalFile reads and writes artifacts on the local filesystem.
type LocalFile struct {
	path string
}

// NewLocalFile creates a local file source/sink.
func NewLocalFile(path string) *LocalFile {
	return &LocalFile{path: path}
}

// Read opens the file and returns a reader.
func (l *LocalFile) Read(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(l.path)
}

// Write stores the data, creating parent directories as needed.
func (l *LocalFile) Write(ctx context.Context, data io.Reader) error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return f.Close()
}

// InlineSource provides data directly from memory.
type InlineSource struct {
	data []byte
}

// NewInlineSource creates an inline source.
func NewInlineSource(data []byte) *InlineSource {
	return &InlineSource{data: data}
}

// Read returns a reader for the inline data.
func (i *InlineSource) Read(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(i.data)), nil
}

// URLSource reads an artifact from an HTTP(S) URL.
type URLSource struct {
	url     string
	headers map[string]string
}

// NewURLSource creates a URL source.
func NewURLSource(url string, headers map[string]string) *URLSource {
	return &URLSource{url: url, headers: headers}
}

// Read fetches the URL and returns a reader.
func (u *URLSource) Read(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range u.headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return resp.Body, nil
}

// S3Object reads and writes artifacts in Amazon S3 or S3-compatible storage.
type S3Object struct {
	bucket string
	key    string
	opts   S3Options
}

// NewS3Object creates an S3 source/sink.
func NewS3Object(bucket, key string, opts S3Options) *S3Object {
	return &S3Object{bucket: bucket, key: key, opts: opts}
}

// Read fetches the object from S3 and returns a reader.
func (s *S3Object) Read(ctx context.Context) (io.ReadCloser, error) {
	client, err := s.createClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}

	return result.Body, nil
}

// Write uploads the data to S3.
func (s *S3Object) Write(ctx context.Context, data io.Reader) error {
	client, err := s.createClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Body:   data,
	})
	if err != nil {
		return fmt.Errorf("failed to put S3 object: %w", err)
	}

	return nil
}

func (s *S3Object) createClient(ctx context.Context) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error

	if s.opts.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s.opts.Region))
	}

	if s.opts.AccessKeyID != "" && s.opts.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.opts.AccessKeyID, s.opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	var s3Opts []func(*s3.Options)
	if s.opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.opts.Endpoint)
			o.UsePathStyle = true // required for most S3-compatible stores
		})
	}

	return s3.NewFromConfig(cfg, s3Opts...), nil
}
