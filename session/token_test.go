package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticToken("").Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestFileToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("tok-1\n"), 0o600))

	f := NewFileToken(path, nil)
	tok, err := f.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok, "token must be trimmed")
}

func TestFileTokenMissingFile(t *testing.T) {
	f := NewFileToken(filepath.Join(t.TempDir(), "absent"), nil)
	_, err := f.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestFileTokenReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	f := NewFileToken(path, nil)

	require.NoError(t, os.WriteFile(path, []byte("rotated"), 0o600))
	require.NoError(t, f.Reload())

	tok, err := f.Token()
	require.NoError(t, err)
	assert.Equal(t, "rotated", tok)

	// Removal clears the credential.
	require.NoError(t, os.Remove(path))
	require.Error(t, f.Reload())
	_, err = f.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}
