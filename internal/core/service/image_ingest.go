package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/carmarket/car-marketplace/internal/api/metrics"
	"github.com/carmarket/car-marketplace/internal/core/domain"
	"github.com/carmarket/car-marketplace/internal/core/ports"
)

const (
	defaultImageFolder       = "cars_images"
	defaultUploadConcurrency = 4
	defaultMaxImageBytes     = 10 << 20
)

// IngestOptions tunes ImageIngest. Zero values fall back to defaults.
type IngestOptions struct {
	Folder string
	// Concurrency bounds parallel uploads per call; 1 uploads sequentially.
	Concurrency int
	MaxBytes    int64
}

// ImageIngest validates client image payloads and uploads them to the
// hosting provider. Every payload is checked before the first upload starts,
// so a bad payload never leaves stray images behind. Upload failures do not
// roll back images that already made it.
type ImageIngest struct {
	host ports.ImageHost
	opts IngestOptions
	log  zerolog.Logger
}

func NewImageIngest(host ports.ImageHost, opts IngestOptions, log zerolog.Logger) *ImageIngest {
	if opts.Folder == "" {
		opts.Folder = defaultImageFolder
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultUploadConcurrency
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxImageBytes
	}
	return &ImageIngest{host: host, opts: opts, log: log}
}

// Ingest returns one hosted URL per payload, in payload order.
func (s *ImageIngest) Ingest(ctx context.Context, payloads []string) ([]string, error) {
	if len(payloads) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", domain.ErrValidation)
	}

	uploads := make([]ports.ImageUpload, len(payloads))
	for i, p := range payloads {
		up, err := s.prepare(p)
		if err != nil {
			return nil, fmt.Errorf("%w: image %d: %s", domain.ErrValidation, i, err)
		}
		uploads[i] = up
	}

	urls := make([]string, len(uploads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i := range uploads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			u, err := s.upload(gctx, uploads[i])
			if err != nil {
				return fmt.Errorf("image %d: %w", i, err)
			}
			urls[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Int("images", len(uploads)).Msg("image ingest failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpload, err)
	}

	s.log.Debug().Int("images", len(urls)).Msg("images ingested")
	return urls, nil
}

func (s *ImageIngest) upload(ctx context.Context, up ports.ImageUpload) (string, error) {
	start := time.Now()
	u, err := s.host.Upload(ctx, up)
	metrics.ImageUploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ImageUploadsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	if u == "" {
		metrics.ImageUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("hosting provider returned no url")
	}
	metrics.ImageUploadsTotal.WithLabelValues("success").Inc()
	return u, nil
}

// prepare turns one payload into an upload request. Accepted forms are an
// http(s) URL, a data URI, or bare base64.
func (s *ImageIngest) prepare(payload string) (ports.ImageUpload, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ports.ImageUpload{}, fmt.Errorf("empty payload")
	}

	lower := strings.ToLower(payload)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		parsed, err := url.Parse(payload)
		if err != nil || parsed.Host == "" {
			return ports.ImageUpload{}, fmt.Errorf("invalid image url")
		}
		return ports.ImageUpload{Folder: s.opts.Folder, RemoteURL: parsed.String()}, nil
	}

	encoded := payload
	if strings.HasPrefix(lower, "data:") {
		header, data, ok := strings.Cut(payload, ",")
		if !ok || !strings.Contains(strings.ToLower(header), ";base64") {
			return ports.ImageUpload{}, fmt.Errorf("data uri must be base64 encoded")
		}
		encoded = data
	}

	data, err := decodeBase64(encoded)
	if err != nil {
		return ports.ImageUpload{}, fmt.Errorf("not a valid base64 payload")
	}
	if len(data) == 0 {
		return ports.ImageUpload{}, fmt.Errorf("empty image")
	}
	if int64(len(data)) > s.opts.MaxBytes {
		return ports.ImageUpload{}, fmt.Errorf("image exceeds %d bytes", s.opts.MaxBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return ports.ImageUpload{}, fmt.Errorf("unsupported content type %s", mt.String())
	}

	return ports.ImageUpload{Folder: s.opts.Folder, Data: data, ContentType: mt.String()}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if data, err := base64.StdEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
