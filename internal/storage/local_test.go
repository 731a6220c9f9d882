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

	appconfig "csrgive.com/app/internal/config"
)

func TestLocalPutGetDelete(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir, "/receipts/")
	ctx := context.Background()

	res, err := l.Put(ctx, strings.NewReader(`{"ok":true}`), PutInput{
		Filename: "RCPT-20260101-000001.json",
		Folder:   "2026/01",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.Key, "2026/01/RCPT-20260101-000001-"), res.Key)
	assert.True(t, strings.HasSuffix(res.Key, ".json"))
	assert.Equal(t, "/receipts/"+res.Key, res.URL)

	body, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(res.Key)))
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(body))

	rc, err := l.Get(ctx, res.Key)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(got))

	require.NoError(t, l.Delete(ctx, res.Key))
	_, err = l.Get(ctx, res.Key)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, l.Delete(ctx, res.Key), "deleting twice is fine")

	leftovers, err := filepath.Glob(filepath.Join(dir, "2026", "01", ".upload-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	l := NewLocal(t.TempDir(), "/r")
	for _, key := range []string{"../secret.json", "/etc/passwd", "", "a/../../b"} {
		_, err := l.Get(context.Background(), key)
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
}

func TestObjectKey(t *testing.T) {
	key := objectKey("../2026//10", "../../etc/passwd.sh")
	assert.True(t, strings.HasPrefix(key, "2026/10/passwd-"), key)
	assert.False(t, strings.HasSuffix(key, ".sh"))
	assert.NotContains(t, key, "..")

	assert.True(t, strings.HasSuffix(objectKey("", "???.json"), ".json"))
}

func TestFromConfig(t *testing.T) {
	res, err := FromConfig(context.Background(), appconfig.StorageConfig{Driver: "local", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "local", res.Driver)

	_, err = FromConfig(context.Background(), appconfig.StorageConfig{Driver: "s3"})
	assert.Error(t, err)

	_, err = FromConfig(context.Background(), appconfig.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
