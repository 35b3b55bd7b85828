package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVault(t *testing.T) *FS {
	t.Helper()
	v, err := NewFS(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v
}

func TestFS_WriteRead(t *testing.T) {
	v := newVault(t)

	require.NoError(t, v.Write("notes/n1.md", []byte("# One\n")))
	got, err := v.Read("notes/n1.md")
	require.NoError(t, err)
	assert.Equal(t, "# One\n", string(got))

	onDisk, err := os.ReadFile(filepath.Join(v.Root(), "notes", "n1.md"))
	require.NoError(t, err)
	assert.Equal(t, "# One\n", string(onDisk))
}

func TestFS_WriteReplaces(t *testing.T) {
	v := newVault(t)
	require.NoError(t, v.Write("audio/a.m4a", []byte("first take")))
	require.NoError(t, v.Write("audio/a.m4a", []byte("second")))

	got, err := v.Read("audio/a.m4a")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(filepath.Join(v.Root(), "audio"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), tempPrefix), "staged file left behind: %s", e.Name())
	}
}

func TestFS_ReadMissing(t *testing.T) {
	_, err := newVault(t).Read("notes/ghost.md")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFS_DeleteIsIdempotent(t *testing.T) {
	v := newVault(t)
	require.NoError(t, v.Write("n.md", []byte("x")))

	require.NoError(t, v.Delete("n.md"))
	require.NoError(t, v.Delete("n.md"))
	_, err := v.Read("n.md")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestFS_List(t *testing.T) {
	v := newVault(t)
	for name, body := range map[string]string{
		"notes/b.md":       "bb",
		"notes/a.md":       "a",
		"notes/deep/c.md":  "c",
		"notes/readme.txt": "skip",
		"notes/.hidden.md": "skip",
	} {
		require.NoError(t, v.Write(name, []byte(body)))
	}

	got, err := v.List("notes", ".md")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "notes/a.md", got[0].Path)
	assert.Equal(t, "notes/b.md", got[1].Path)
	assert.EqualValues(t, 2, got[1].Size)
	assert.False(t, got[0].Modified.IsZero())

	root, err := v.List("", ".md")
	require.NoError(t, err)
	assert.Empty(t, root)
}

func TestFS_ListMissingDir(t *testing.T) {
	got, err := newVault(t).List("audio", ".m4a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFS_RejectsPathsOutsideVault(t *testing.T) {
	v := newVault(t)
	for _, p := range []string{"../escape.md", "notes/../../escape.md", "/etc/passwd", ""} {
		_, err := v.Read(p)
		assert.ErrorIs(t, err, ErrOutsideVault, "read %q", p)
		assert.ErrorIs(t, v.Write(p, []byte("x")), ErrOutsideVault, "write %q", p)
		assert.ErrorIs(t, v.Delete(p), ErrOutsideVault, "delete %q", p)
	}
	_, err := v.List("..", ".md")
	assert.ErrorIs(t, err, ErrOutsideVault)
}

func TestFS_SymlinkCannotEscape(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.md"), []byte("secret"), 0o644))

	v := newVault(t)
	if err := os.Symlink(outside, filepath.Join(v.Root(), "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	_, err := v.Read("link/secret.md")
	assert.Error(t, err)
	assert.Error(t, v.Write("link/planted.md", []byte("x")))
	_, err = os.Stat(filepath.Join(outside, "planted.md"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestNewFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "vault")
	v, err := NewFS(dir)
	require.NoError(t, err)
	defer v.Close()
	assert.DirExists(t, dir)
	assert.True(t, filepath.IsAbs(v.Root()))

	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewFS(file)
	assert.Error(t, err)
}
