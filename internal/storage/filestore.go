// Package storage persists uploaded documents on disk so a reconciliation
// run can be replayed or audited after the fact.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore stores uploaded documents and hands back opaque handles.
type FileStore interface {
	// Save writes data under a kind prefix ("bank", "secondary") and
	// returns the handle to read it back.
	Save(ctx context.Context, kind, name string, data []byte) (string, error)
	Read(ctx context.Context, handle string) ([]byte, error)
	Delete(ctx context.Context, handle string) error
}

type diskStore struct {
	root   string
	logger *slog.Logger
}

func NewDiskStore(root string, logger *slog.Logger) (FileStore, error) {
	if root == "" {
		root = "./uploads"
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &diskStore{root: root, logger: logger}, nil
}

func (s *diskStore) Save(_ context.Context, kind, name string, data []byte) (string, error) {
	handle := fmt.Sprintf("%s_%d_%s", kind, time.Now().UnixNano(), sanitizeName(name))
	path := filepath.Join(s.root, handle)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	s.logger.Debug("storage.save", "handle", handle, "bytes", len(data))
	return handle, nil
}

func (s *diskStore) Read(_ context.Context, handle string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, sanitizeName(handle)))
	if err != nil {
		return nil, fmt.Errorf("read upload %q: %w", handle, err)
	}
	return data, nil
}

func (s *diskStore) Delete(_ context.Context, handle string) error {
	if err := os.Remove(filepath.Join(s.root, sanitizeName(handle))); err != nil {
		return fmt.Errorf("delete upload %q: %w", handle, err)
	}
	return nil
}

// sanitizeName strips path separators so a handle can never escape the root.
func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
