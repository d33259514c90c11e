package localdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"centrovision-data/internal/apperr"
	"centrovision-data/internal/bridge"
)

type documentPathRow struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// getDocumentPath resolves a stored object to a file on disk: an explicit
// documents row first, otherwise <docsDir>/<bucket>/<object path>.
func (s *Store) getDocumentPath(ctx context.Context, raw json.RawMessage) (any, error) {
	a, err := bridge.Decode[struct {
		Bucket string `json:"bucket"`
		Path   string `json:"path"`
	}](raw)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	objectPath := strings.TrimLeft(a.Path, "/")

	var local string
	err = s.db.QueryRowContext(ctx,
		`SELECT local_path FROM documents WHERE bucket = ? AND object_path = ?`, a.Bucket, objectPath).Scan(&local)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if s.docsDir == "" {
			return nil, apperr.NotFound("no local documents directory configured")
		}
		local = filepath.Join(s.docsDir, a.Bucket, filepath.FromSlash(objectPath))
		root := filepath.Clean(s.docsDir) + string(filepath.Separator)
		if !strings.HasPrefix(local, root) {
			return nil, apperr.Validation("document path %q escapes the documents directory", a.Path)
		}
	case err != nil:
		return nil, classifySQL("get_document_path", err)
	}

	abs, err := filepath.Abs(local)
	if err != nil {
		return nil, err
	}
	_, statErr := os.Stat(abs)
	return documentPathRow{Path: abs, Exists: statErr == nil}, nil
}

// RegisterDocument maps a stored object to an existing local file.
func (s *Store) RegisterDocument(ctx context.Context, bucket, objectPath, localPath string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, bucket, object_path, local_path, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(bucket, object_path) DO UPDATE SET local_path = excluded.local_path`,
		s.newID(), bucket, strings.TrimLeft(objectPath, "/"), localPath, s.timestamp())
	return classifySQL("register document", err)
}
