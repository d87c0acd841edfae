package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBackend(t *testing.T) *LocalBackend {
	t.Helper()
	lb, err := NewLocalBackend(t.TempDir())
	require.NoError(t, err)
	return lb
}

func TestLocalStoreAndRetrieve(t *testing.T) {
	lb := newTestBackend(t)
	ctx := context.Background()

	key, err := lb.Store(ctx, 7, "LETTER", "motivation.pdf", strings.NewReader("%PDF-1.4 hello"), "application/pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "letter/7/"), "key %q missing kind/user prefix", key)
	assert.True(t, strings.HasSuffix(key, "_motivation.pdf"))

	rc, err := lb.Retrieve(ctx, key)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 hello", string(data))

	info, err := lb.Metadata(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
}

func TestLocalKeysAreUnique(t *testing.T) {
	lb := newTestBackend(t)
	ctx := context.Background()

	k1, err := lb.Store(ctx, 7, "LETTER", "same.pdf", strings.NewReader("a"), "application/pdf")
	require.NoError(t, err)
	k2, err := lb.Store(ctx, 7, "LETTER", "same.pdf", strings.NewReader("b"), "application/pdf")
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)
}

func TestLocalDelete(t *testing.T) {
	lb := newTestBackend(t)
	ctx := context.Background()

	key, err := lb.Store(ctx, 7, "PROFILE_IMAGE", "me.png", strings.NewReader("png"), "image/png")
	require.NoError(t, err)

	require.NoError(t, lb.Delete(ctx, key))
	_, err = lb.Retrieve(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error.
	assert.NoError(t, lb.Delete(ctx, key))
}

func TestLocalRejectsTraversal(t *testing.T) {
	lb := newTestBackend(t)
	ctx := context.Background()

	_, err := lb.Retrieve(ctx, "../../etc/passwd")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	err = lb.Delete(ctx, "../../../tmp/x")
	assert.Error(t, err)
}

func TestLocalRejectsSiblingDirectory(t *testing.T) {
	dir := t.TempDir()
	lb, err := NewLocalBackend(filepath.Join(dir, "store"))
	require.NoError(t, err)

	// A sibling whose name shares the base as a string prefix.
	sibling := filepath.Join(dir, "store-x")
	require.NoError(t, os.MkdirAll(sibling, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sibling, "secret.txt"), []byte("secret"), 0o644))

	_, err = lb.Retrieve(context.Background(), "../store-x/secret.txt")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c.png", sanitizeFilename(`a/b\c.png`))
	assert.Equal(t, "__secret", sanitizeFilename("../secret"))
	assert.Equal(t, "plain.pdf", sanitizeFilename("plain.pdf"))
}
