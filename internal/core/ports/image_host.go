package ports

import "context"

// ImageUpload is a single image handed to the hosting provider. Exactly one
// of Data or RemoteURL is set.
type ImageUpload struct {
	Folder      string
	Data        []byte
	ContentType string
	RemoteURL   string
}

// ImageHost stores an image and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, img ImageUpload) (string, error)
}

// ImageIngester turns client payloads into hosted URLs, preserving order.
type ImageIngester interface {
	Ingest(ctx context.Context, payloads []string) ([]string, error)
}
