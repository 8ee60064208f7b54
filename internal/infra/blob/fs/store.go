// Package fs implements the blob Store on a local directory. Each blob is a
// file under the root with a JSON sidecar (`<file>.meta`) holding its
// content type, metadata and etag.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cheeseshop/internal/blob/core"
)

const (
	metaSuffix  = ".meta"
	defaultRoot = "./blobdata"
)

// Store implements core.Store on the filesystem. Writers to the same key
// race on the final rename; the first one wins.
type Store struct {
	root string
}

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = defaultRoot
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the directory blobs are written under.
func (s *Store) Root() string { return s.root }

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

func (s *Store) paths(key string) (string, string, string, error) {
	clean, err := core.CleanKey(key)
	if err != nil {
		return "", "", "", err
	}
	data := filepath.Join(s.root, filepath.FromSlash(clean))
	return clean, data, data + metaSuffix, nil
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (m metaFile) info(key string) core.Info {
	return core.Info{
		Key:          key,
		Size:         m.Size,
		ContentType:  m.ContentType,
		ETag:         m.ETag,
		Metadata:     core.CloneMetadata(m.Metadata),
		LastModified: m.CreatedAt,
	}
}

// Put streams r into a temp file, then renames it into place.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if err := ctx.Err(); err != nil {
		return core.Info{}, err
	}
	key, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return core.Info{}, fmt.Errorf("put %s: %w", key, core.ErrExists)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return core.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return core.Info{}, fmt.Errorf("write blob %s: %w", key, err)
	}
	meta := metaFile{
		ContentType: opts.ContentType,
		Metadata:    core.CloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return core.Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		_ = os.Remove(metaPath)
		return core.Info{}, err
	}
	return meta.info(key), nil
}

// Get opens the blob for reading. The caller closes the reader.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	key, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if err != nil {
		return core.Info{}, nil, notFound("get", key, err)
	}
	meta, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return core.Info{}, nil, notFound("get", key, err)
	}
	return meta.info(key), file, nil
}

// Head returns blob metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	key, _, metaPath, err := s.paths(key)
	if err != nil {
		return core.Info{}, err
	}
	meta, err := readMeta(metaPath)
	if err != nil {
		return core.Info{}, notFound("head", key, err)
	}
	return meta.info(key), nil
}

// Delete removes the blob and its sidecar.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	_, dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(metaPath)
	return true, nil
}

// List walks the root for sidecars whose key starts with prefix.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	var infos []core.Info
	err := filepath.WalkDir(s.root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(p, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		meta, err := readMeta(p)
		if err != nil {
			return err
		}
		infos = append(infos, meta.info(key))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// SignedURL returns a file:// URL for existing blobs. It carries no
// signature and does not expire.
func (s *Store) SignedURL(ctx context.Context, key string, _ core.SignedURLOptions) (string, error) {
	if _, err := s.Head(ctx, key); err != nil {
		return "", err
	}
	_, dataPath, _, _ := s.paths(key)
	abs, err := filepath.Abs(dataPath)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func notFound(op, key string, err error) error {
	if errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("%s %s: %w", op, key, core.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", op, key, err)
}

func writeMeta(path string, m metaFile) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return metaFile{}, err
	}
	var m metaFile
	if err := json.Unmarshal(b, &m); err != nil {
		return metaFile{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return m, nil
}
