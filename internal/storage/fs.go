package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/docuflow/textract-export/internal/common"
)

// FSStore is a filesystem-backed ObjectStore rooted at a directory.
// Presigned URLs carry an HMAC-SHA256 signature over "location|expiry".
type FSStore struct {
	root    string
	baseURL string
	secret  []byte
	logger  *slog.Logger
}

func NewFSStore(root, baseURL, signingSecret string, logger *slog.Logger) (*FSStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		return nil, common.NewAppError("STORAGE_CONFIG", "storage root is required", common.ErrInvalidInput)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSStore{
		root:    root,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		secret:  []byte(signingSecret),
		logger:  logger,
	}, nil
}

// Root returns the store's root directory. The upload watcher watches it.
func (s *FSStore) Root() string { return s.root }

func (s *FSStore) Put(ctx context.Context, location string, data []byte, contentType string) error {
	p, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("write object %s: %w", location, err)
	}
	s.logger.Debug("storage.put", "location", location, "bytes", len(data), "content_type", contentType)
	return nil
}

func (s *FSStore) Get(ctx context.Context, location string) ([]byte, error) {
	p, err := s.resolve(location)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.NewAppError("STORAGE_NOT_FOUND", location, common.ErrNotFound)
		}
		return nil, fmt.Errorf("read object %s: %w", location, err)
	}
	return data, nil
}

func (s *FSStore) Exists(ctx context.Context, location string) (bool, error) {
	p, err := s.resolve(location)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FSStore) Delete(ctx context.Context, location string) error {
	p, err := s.resolve(location)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete object %s: %w", location, err)
	}
	s.logger.Debug("storage.delete", "location", location)
	return nil
}

func (s *FSStore) Presign(location string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	expires := time.Now().Add(ttl).Unix()
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", location, expires)
	sig := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("%s/%s?expires=%d&signature=%s", s.baseURL, location, expires, sig), nil
}

// RelKey converts an absolute path under the store root back to an object
// key. Returns "" when the path is outside the root.
func (s *FSStore) RelKey(absPath string) string {
	rel, err := filepath.Rel(s.root, absPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}

// resolve maps a location to an absolute path, rejecting traversal.
func (s *FSStore) resolve(location string) (string, error) {
	clean := path.Clean("/" + location)
	if clean == "/" || strings.Contains(clean, "..") {
		return "", common.NewAppError("STORAGE_BAD_KEY", location, common.ErrInvalidInput)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

var _ ObjectStore = (*FSStore)(nil)
