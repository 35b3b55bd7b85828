package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ErrOutsideVault is returned for paths that are absolute or climb out of the
// vault with "..".
var ErrOutsideVault = errors.New("storage: path outside vault")

const tempPrefix = ".quill-tmp-"

// FS implements Provider on a local directory. All access goes through an
// os.Root, so symlinks inside the vault cannot reach files outside it.
type FS struct {
	dir  string
	root *os.Root
}

// NewFS opens the vault at dir, creating it if needed.
func NewFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create vault: %w", err)
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open vault: %w", err)
	}
	return &FS{dir: abs, root: root}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.dir }

// Close releases the vault handle.
func (f *FS) Close() error { return f.root.Close() }

// Sub returns a read-only view of dir inside the vault.
func (f *FS) Sub(dir string) (fs.FS, error) {
	if _, err := local(dir); err != nil {
		return nil, err
	}
	sub, err := fs.Sub(f.root.FS(), path.Clean(dir))
	if err != nil {
		return nil, fmt.Errorf("storage: sub %s: %w", dir, err)
	}
	return sub, nil
}

// local converts a slash-separated vault path to an OS path, rejecting
// anything that is not strictly inside the vault.
func local(p string) (string, error) {
	native := filepath.FromSlash(p)
	if !filepath.IsLocal(native) {
		return "", fmt.Errorf("%w: %q", ErrOutsideVault, p)
	}
	return filepath.Clean(native), nil
}

func (f *FS) List(dir, ext string) ([]Entry, error) {
	if dir == "" {
		dir = "."
	}
	if _, err := local(dir); err != nil {
		return nil, err
	}
	dir = path.Clean(dir)

	entries, err := fs.ReadDir(f.root.FS(), dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}

	out := make([]Entry, 0, len(entries))
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := de.Info()
		if errors.Is(err, fs.ErrNotExist) {
			// Removed between ReadDir and Info.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("storage: stat %s: %w", name, err)
		}
		out = append(out, Entry{
			Path:     path.Join(dir, name),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	slices.SortFunc(out, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

func (f *FS) Read(p string) ([]byte, error) {
	name, err := local(p)
	if err != nil {
		return nil, err
	}
	data, err := f.root.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

func (f *FS) Stat(p string) (Entry, error) {
	name, err := local(p)
	if err != nil {
		return Entry{}, err
	}
	info, err := f.root.Stat(name)
	if err != nil {
		return Entry{}, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	if info.IsDir() {
		return Entry{}, fmt.Errorf("storage: stat %s: is a directory", p)
	}
	return Entry{Path: path.Clean(p), Size: info.Size(), Modified: info.ModTime()}, nil
}

// Write stages content in a hidden sibling file, syncs it, then renames it
// over p so readers never observe a partial file.
func (f *FS) Write(p string, content []byte) (err error) {
	name, err := local(p)
	if err != nil {
		return err
	}
	if parent := filepath.Dir(name); parent != "." {
		if err := f.root.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("storage: mkdir %s: %w", parent, err)
		}
	}

	staged := filepath.Join(filepath.Dir(name), tempPrefix+uuid.NewString())
	tmp, err := f.root.OpenFile(staged, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("storage: stage %s: %w", p, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = f.root.Remove(staged)
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", p, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: sync %s: %w", p, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", p, err)
	}
	if err = f.root.Rename(staged, name); err != nil {
		return fmt.Errorf("storage: replace %s: %w", p, err)
	}
	return nil
}

func (f *FS) Delete(p string) error {
	name, err := local(p)
	if err != nil {
		return err
	}
	if err := f.root.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", p, err)
	}
	return nil
}
