package service

import (
	"context"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/domain"
	"centrovision-data/internal/dualaccess"
	"centrovision-data/internal/repository"
)

type DocumentService struct {
	runner *dualaccess.Runner
	repos  dualaccess.Backends[repository.DocumentRepository]
}

func NewDocumentService(runner *dualaccess.Runner, repos dualaccess.Backends[repository.DocumentRepository]) *DocumentService {
	return &DocumentService{runner: runner, repos: repos}
}

// Link returns where the caller can fetch bucket/path: a signed URL remotely,
// a file:// URL locally.
func (s *DocumentService) Link(ctx context.Context, bucket, path string) (*domain.DocumentLink, error) {
	if err := required("bucket", bucket); err != nil {
		return nil, err
	}
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if err := required("path", path); err != nil {
		return nil, err
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return nil, apperr.Validation("path %q may not contain ..", path)
		}
	}
	return dualaccess.Do(ctx, s.runner, familyDocuments, "Link", s.repos,
		func(ctx context.Context, r repository.DocumentRepository) (*domain.DocumentLink, error) {
			return r.Link(ctx, bucket, path)
		})
}
