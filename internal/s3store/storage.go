// Package s3store implements remote.Storage on an S3-compatible bucket. Directories are
// modelled as key prefixes with zero-byte marker objects; uploads go through presigned PUT URLs.
package s3store

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"

	"github.com/hwuu/diskup/internal/remote"
)

const (
	DefaultRegion = "us-east-1"
	PresignExpiry = 15 * time.Minute

	sniffLen = 3072
)

// Options configures the bucket connection.
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string // custom endpoint for MinIO and other S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	HTTPClient      *http.Client
}

// Storage is an S3-backed remote.Storage.
type Storage struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
	http    *http.Client
}

// New loads the AWS configuration (static credentials when given, the default chain
// otherwise) and builds the storage.
func New(ctx context.Context, opts Options) (*Storage, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
		config.WithHTTPClient(httpClient),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID,
			opts.SecretAccessKey,
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.UsePathStyle
	})

	return NewFromClient(client, opts.Bucket, httpClient), nil
}

// NewFromClient wraps an existing S3 client.
func NewFromClient(client *s3.Client, bucket string, httpClient *http.Client) *Storage {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Storage{
		bucket:  bucket,
		client:  client,
		presign: s3.NewPresignClient(client),
		http:    httpClient,
	}
}

// keyPrefix maps a remote directory path ("/a/b/") to its key prefix ("a/b/"); the root maps
// to the empty prefix.
func keyPrefix(path string) string {
	p := strings.Trim(path, remote.Separator)
	if p == "" {
		return ""
	}
	return p + remote.Separator
}

func objectKey(path string) string {
	return strings.TrimPrefix(path, remote.Separator)
}

// GetMetadata lists the immediate children of path using the "/" delimiter.
func (s *Storage) GetMetadata(ctx context.Context, path string) (*remote.Resource, error) {
	prefix := keyPrefix(path)
	res := &remote.Resource{Path: path}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String(remote.Separator),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, mapError(err))
		}
		for _, cp := range page.CommonPrefixes {
			name := strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), remote.Separator)
			if name != "" {
				res.Items = append(res.Items, remote.Item{Name: name, Type: remote.TypeDir})
			}
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" {
				continue // the directory marker itself
			}
			res.Items = append(res.Items, remote.Item{Name: name, Type: remote.TypeFile})
		}
	}
	return res, nil
}

// CreateDirectory writes the zero-byte marker object "prefix/".
func (s *Storage) CreateDirectory(ctx context.Context, path string) error {
	key := keyPrefix(path)
	if key == "" {
		return nil
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(nil),
	})
	if err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, mapError(err))
	}
	return nil
}

// GetUploadLink presigns a PUT for the object at path. Without overwrite the upload is made
// conditional on the object not existing yet.
func (s *Storage) GetUploadLink(ctx context.Context, path string, overwrite bool) (*remote.Link, error) {
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(path)),
	}
	if !overwrite {
		in.IfNoneMatch = aws.String("*")
	}

	req, err := s.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload for %s: %w", path, mapError(err))
	}

	link := &remote.Link{Href: req.URL, Method: req.Method, Header: map[string]string{}}
	for k, v := range req.SignedHeader {
		if strings.EqualFold(k, "Host") || len(v) == 0 {
			continue
		}
		link.Header[k] = v[0]
	}
	return link, nil
}

// Upload sends r to the presigned URL. The content type is sniffed from the first bytes.
func (s *Storage) Upload(ctx context.Context, link *remote.Link, r io.Reader, size int64) error {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return fmt.Errorf("read upload body: %w", err)
	}

	var body io.Reader = br
	if size == 0 {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, link.Method, link.Href, body)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", mimetype.Detect(head).String())
	for k, v := range link.Header {
		req.Header.Set(k, v)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("upload failed: %s: %w", resp.Status, remote.ErrNotAuthorized)
	case http.StatusPreconditionFailed:
		return fmt.Errorf("upload failed: %s: %w", resp.Status, remote.ErrAlreadyExists)
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
}

func (s *Storage) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

var authErrorCodes = map[string]bool{
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"InvalidToken":          true,
	"ExpiredToken":          true,
}

// mapError turns credential rejections into remote.ErrNotAuthorized and missing buckets into
// remote.ErrNotFound, keeping the SDK error text.
func mapError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch {
		case authErrorCodes[apiErr.ErrorCode()]:
			return fmt.Errorf("%w: %v", remote.ErrNotAuthorized, err)
		case apiErr.ErrorCode() == "NoSuchBucket":
			return fmt.Errorf("%w: %v", remote.ErrNotFound, err)
		}
	}
	return err
}
