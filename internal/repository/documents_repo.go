package repository

import (
	"context"
	"net/url"
	"path/filepath"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/remote"
)

type DocumentRepository interface {
	// Link returns a location the caller can open for bucket/path.
	Link(ctx context.Context, bucket, path string) (*domain.DocumentLink, error)
}

type RemoteDocumentRepository struct {
	client *remote.Client
}

func NewRemoteDocumentRepository(client *remote.Client) *RemoteDocumentRepository {
	return &RemoteDocumentRepository{client: client}
}

func (r *RemoteDocumentRepository) Link(ctx context.Context, bucket, path string) (*domain.DocumentLink, error) {
	signed, expires, err := r.client.SignedURL(ctx, bucket, path)
	if err != nil {
		return nil, err
	}
	return &domain.DocumentLink{Bucket: bucket, Path: path, URL: signed, ExpiresAt: &expires}, nil
}

type LocalDocumentRepository struct {
	bridge bridge.Invoker
}

func NewLocalDocumentRepository(b bridge.Invoker) *LocalDocumentRepository {
	return &LocalDocumentRepository{bridge: b}
}

// Link resolves to a file:// URL. A path that resolves but is missing on
// disk is NotFound.
func (r *LocalDocumentRepository) Link(ctx context.Context, bucket, path string) (*domain.DocumentLink, error) {
	var res struct {
		Path   string `json:"path"`
		Exists bool   `json:"exists"`
	}
	if err := r.bridge.Invoke(ctx, "get_document_path", map[string]string{"bucket": bucket, "path": path}, &res); err != nil {
		return nil, err
	}
	if !res.Exists {
		return nil, apperr.NotFound("document %s/%s is not available offline", bucket, path)
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(res.Path)}
	return &domain.DocumentLink{Bucket: bucket, Path: path, URL: u.String(), Local: true}, nil
}
