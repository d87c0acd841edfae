package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalBackend keeps objects on the local filesystem under a base
// directory. Useful for development and single-node deployments.
type LocalBackend struct {
	basePath string
}

// NewLocalBackend creates the base directory if needed.
func NewLocalBackend(basePath string) (*LocalBackend, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalBackend{basePath: basePath}, nil
}

func (lb *LocalBackend) Store(ctx context.Context, userID uint64, kind, filename string, content io.Reader, contentType string) (string, error) {
	key := objectKey(userID, kind, filename)

	fullPath := filepath.Join(lb.basePath, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("write file: %w", err)
	}
	return key, nil
}

func (lb *LocalBackend) Retrieve(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := lb.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

func (lb *LocalBackend) Delete(ctx context.Context, key string) error {
	fullPath, err := lb.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// URL returns the path of the authenticated file-serving endpoint;
// expiry is not enforceable for local files and is ignored.
func (lb *LocalBackend) URL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "/v1/files/" + key, nil
}

func (lb *LocalBackend) Metadata(ctx context.Context, key string) (ObjectInfo, error) {
	fullPath, err := lb.resolve(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	stat, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("stat file: %w", err)
	}
	return ObjectInfo{
		Size:         stat.Size(),
		ContentType:  "application/octet-stream",
		LastModified: stat.ModTime(),
		ETag:         fmt.Sprintf("%d-%d", stat.Size(), stat.ModTime().Unix()),
	}, nil
}

// resolve joins the key onto the base path and rejects traversal
// outside it.
func (lb *LocalBackend) resolve(key string) (string, error) {
	fullPath := filepath.Join(lb.basePath, key)

	absBase, err := filepath.Abs(lb.basePath)
	if err != nil {
		return "", fmt.Errorf("resolve base path: %w", err)
	}
	absFull, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("resolve file path: %w", err)
	}
	// Plain prefix checks admit siblings like base+"-x"; require a
	// path-separated descendant.
	if absFull != absBase && !strings.HasPrefix(absFull, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return fullPath, nil
}

// objectKey builds kind/userID/year/month/uuid_filename.
func objectKey(userID uint64, kind, filename string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s/%d/%d/%02d/%s_%s",
		strings.ToLower(kind), userID, now.Year(), now.Month(),
		uuid.New().String(), sanitizeFilename(filename))
}

func sanitizeFilename(filename string) string {
	for _, bad := range []string{"/", "\\", "..", ":", "*", "?", "\"", "<", ">", "|"} {
		filename = strings.ReplaceAll(filename, bad, "_")
	}
	return filename
}
