package imagehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/carmarket/car-marketplace/internal/core/ports"
)

const (
	defaultFetchTimeout  = 15 * time.Second
	defaultFetchMaxBytes = 10 << 20
	maxFetchRedirects    = 3
)

var errBlockedAddress = errors.New("address not allowed")

// S3Config configures an S3-compatible bucket (AWS or MinIO).
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PublicBaseURL prefixes object keys in the returned URL. Defaults to Endpoint.
	PublicBaseURL string
	MaxBytes      int64
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 implements ports.ImageHost by writing objects to a bucket.
type S3 struct {
	client   objectPutter
	http     *http.Client
	bucket   string
	baseURL  string
	maxBytes int64
	newKey   func(folder, ext string) string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = cfg.Endpoint
	}
	if base == "" {
		base = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}

	return newS3(client, cfg.Bucket, base, cfg.MaxBytes), nil
}

func newS3(client objectPutter, bucket, baseURL string, maxBytes int64) *S3 {
	if maxBytes <= 0 {
		maxBytes = defaultFetchMaxBytes
	}
	return &S3{
		client:   client,
		http:     newFetchClient(),
		bucket:   bucket,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		newKey:   objectKey,
	}
}

// Upload stores the image under <folder>/<uuid><ext>. Remote URLs are
// downloaded first since S3 has no fetch-from-URL operation.
func (s *S3) Upload(ctx context.Context, img ports.ImageUpload) (string, error) {
	data, contentType := img.Data, img.ContentType
	if img.RemoteURL != "" {
		var err error
		data, contentType, err = s.fetch(ctx, img.RemoteURL)
		if err != nil {
			return "", err
		}
	}
	if contentType == "" {
		contentType = mimetype.Detect(data).String()
	}

	key := s.newKey(img.Folder, extensionFor(contentType))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.publicURL(key), nil
}

func (s *S3) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	if u, err := url.Parse(rawURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, "", fmt.Errorf("fetch image: unsupported url %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", fmt.Errorf("fetch image: exceeds %d bytes", s.maxBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, "", fmt.Errorf("fetch image: unsupported content type %s", mt.String())
	}
	return data, mt.String(), nil
}

// newFetchClient only dials public unicast addresses. The check runs on the
// resolved IP, so DNS names pointing at internal hosts are refused too.
func newFetchClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: 5 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			return checkDialAddr(address)
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   defaultFetchTimeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxFetchRedirects {
				return fmt.Errorf("stopped after %d redirects", maxFetchRedirects)
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return fmt.Errorf("redirect to %s not allowed", req.URL.Scheme)
			}
			return nil
		},
	}
}

func checkDialAddr(address string) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	ip := ap.Addr().Unmap()
	if !ip.IsGlobalUnicast() || ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
		return fmt.Errorf("%w: %s", errBlockedAddress, ip)
	}
	return nil
}

func (s *S3) publicURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + key
}

func objectKey(folder, ext string) string {
	return path.Join(folder, uuid.NewString()+ext)
}

func extensionFor(contentType string) string {
	if mt := mimetype.Lookup(contentType); mt != nil {
		return mt.Extension()
	}
	return ""
}
