package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore keeps blobs as files under a root directory.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("media root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &FSStore{root: root}, nil
}

func (s *FSStore) path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

func (s *FSStore) Put(_ context.Context, name, contentType string, r io.Reader) (Object, error) {
	name, err := CleanName(name)
	if err != nil {
		return Object{}, err
	}
	dst := s.path(name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("put %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", name, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return Object{}, fmt.Errorf("put %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return Object{}, fmt.Errorf("put %s: %w", name, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return Object{}, fmt.Errorf("put %s: %w", name, err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return Object{}, fmt.Errorf("put %s: %w", name, err)
	}
	if contentType == "" {
		contentType = contentTypeFor(name)
	}
	return Object{Name: name, Size: info.Size(), ContentType: contentType, ModTime: info.ModTime().UTC()}, nil
}

func (s *FSStore) Open(_ context.Context, name string) (io.ReadCloser, Object, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, Object{}, err
	}
	f, err := os.Open(s.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, fmt.Errorf("open %s: %w", name, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Object{}, fmt.Errorf("open %s: %w", name, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, Object{}, ErrNotFound
	}
	return f, Object{
		Name:        name,
		Size:        info.Size(),
		ContentType: contentTypeFor(name),
		ModTime:     info.ModTime().UTC(),
	}, nil
}

func (s *FSStore) List(_ context.Context, prefix string) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{
			Name:        name,
			Size:        info.Size(),
			ContentType: contentTypeFor(name),
			ModTime:     info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *FSStore) Delete(_ context.Context, name string) error {
	name, err := CleanName(name)
	if err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

func (s *FSStore) Close() error { return nil }
