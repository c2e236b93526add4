package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/models"
)

// DefaultExt is the Markdown document extension.
const DefaultExt = ".md"

// FS implements Provider backed by a directory on the local file system.
type FS struct {
	root string // absolute path to content directory
	ext  string
}

// NewFS creates a provider rooted at dir, creating the directory if needed.
// ext is the document extension including the leading dot.
func NewFS(dir, ext string) (*FS, error) {
	if ext == "" {
		ext = DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		return nil, fmt.Errorf("storage: extension must start with a dot: %q", ext)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w: %w", apperr.ErrIO, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w: %w", apperr.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, ext: ext}, nil
}

// Root returns the absolute content directory.
func (f *FS) Root() string { return f.root }

// Ext returns the document extension.
func (f *FS) Ext() string { return f.ext }

// Filename returns "<id><ext>".
func (f *FS) Filename(id string) string { return id + f.ext }

// IDFromFilename returns the id for name, or ok=false when name is not a
// document file.
func (f *FS) IDFromFilename(name string) (string, bool) {
	if !strings.HasSuffix(name, f.ext) || strings.HasPrefix(name, ".") {
		return "", false
	}
	id := strings.TrimSuffix(name, f.ext)
	return id, id != ""
}

// ValidateID rejects ids that would escape the content directory or
// collide with temp files.
func ValidateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: id is required", apperr.ErrInvalidRequest)
	case strings.ContainsAny(id, `/\`), strings.Contains(id, ".."):
		return fmt.Errorf("%w: id must not contain path elements: %q", apperr.ErrInvalidRequest, id)
	case strings.HasPrefix(id, "."):
		return fmt.Errorf("%w: id must not start with a dot: %q", apperr.ErrInvalidRequest, id)
	}
	return nil
}

// safePath resolves id to an absolute file path under root.
func (f *FS) safePath(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	abs := filepath.Join(f.root, f.Filename(id))
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("%w: path escapes content root: %q", apperr.ErrInvalidRequest, id)
	}
	return abs, nil
}

// List returns metadata for every document file directly under root.
func (f *FS) List() ([]models.DocumentMeta, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list: %w: %w", apperr.ErrIO, err)
	}
	var out []models.DocumentMeta
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := f.IDFromFilename(e.Name())
		if !ok {
			continue
		}
		meta := models.DocumentMeta{ID: id, Filename: e.Name()}
		if info, err := e.Info(); err == nil {
			meta.UpdatedAt = info.ModTime()
		}
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

// Read returns the stored body for id.
func (f *FS) Read(id string) (string, bool, error) {
	abs, err := f.safePath(id)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: read %s: %w: %w", id, apperr.ErrIO, err)
	}
	return string(data), true, nil
}

// Write atomically writes body: tmp file → fsync → rename.
func (f *FS) Write(id, body string) error {
	abs, err := f.safePath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.root, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w: %w", apperr.ErrIO, err)
	}

	tmp, err := os.CreateTemp(f.root, ".haven-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w: %w", apperr.ErrIO, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(body); err != nil {
		return fmt.Errorf("storage: write temp: %w: %w", apperr.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w: %w", apperr.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w: %w", apperr.ErrIO, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w: %w", apperr.ErrIO, err)
	}
	success = true
	return nil
}

// Delete removes the document for id. A missing file is not an error.
func (f *FS) Delete(id string) (bool, error) {
	abs, err := f.safePath(id)
	if err != nil {
		return false, err
	}
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("storage: delete %s: %w: %w", id, apperr.ErrIO, err)
	}
	return true, nil
}
