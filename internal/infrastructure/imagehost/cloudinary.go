package imagehost

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/carmarket/car-marketplace/internal/core/ports"
)

// CloudinaryConfig holds the account credentials.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type cloudinaryUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// Cloudinary implements ports.ImageHost on top of the Cloudinary upload API.
type Cloudinary struct {
	api cloudinaryUploader
}

func NewCloudinary(cfg CloudinaryConfig) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, errors.New("cloudinary: cloud name, api key and api secret are required")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{api: &cld.Upload}, nil
}

// Upload sends raw bytes as a stream; remote URLs are fetched by Cloudinary.
func (c *Cloudinary) Upload(ctx context.Context, img ports.ImageUpload) (string, error) {
	var file interface{}
	if img.RemoteURL != "" {
		file = img.RemoteURL
	} else {
		file = bytes.NewReader(img.Data)
	}

	res, err := c.api.Upload(ctx, file, uploader.UploadParams{Folder: img.Folder})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if res == nil {
		return "", errors.New("cloudinary upload: empty response")
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", errors.New("cloudinary upload: no secure url in response")
	}
	return res.SecureURL, nil
}
