// Package memory implements an in-memory blob Store for tests and ephemeral
// runs.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"cheeseshop/internal/blob/core"
)

type object struct {
	info core.Info
	data []byte
}

// Store implements core.Store backed by process memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]object
	now  func() time.Time
}

// New returns an empty in-memory blob store.
func New() *Store {
	return &Store{objs: make(map[string]object), now: func() time.Time { return time.Now().UTC() }}
}

// Driver returns the blob driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a new blob; it fails if the key exists.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if err := ctx.Err(); err != nil {
		return core.Info{}, err
	}
	key, err := core.CleanKey(key)
	if err != nil {
		return core.Info{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, fmt.Errorf("read blob %s: %w", key, err)
	}
	sum := md5.Sum(b)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return core.Info{}, fmt.Errorf("put %s: %w", key, core.ErrExists)
	}
	info := core.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     core.CloneMetadata(opts.Metadata),
		LastModified: s.now(),
	}
	s.objs[key] = object{info: info, data: b}
	return copyInfo(info), nil
}

// Get returns blob metadata and a reader over a copy of its content.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	obj, ok := s.lookup(key)
	if !ok {
		return core.Info{}, nil, fmt.Errorf("get %s: %w", key, core.ErrNotFound)
	}
	data := bytes.Clone(obj.data)
	return copyInfo(obj.info), io.NopCloser(bytes.NewReader(data)), nil
}

// Head returns blob metadata only.
func (s *Store) Head(_ context.Context, key string) (core.Info, error) {
	obj, ok := s.lookup(key)
	if !ok {
		return core.Info{}, fmt.Errorf("head %s: %w", key, core.ErrNotFound)
	}
	return copyInfo(obj.info), nil
}

// Delete removes the blob and reports whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

// List returns blobs matching prefix ordered by key.
func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, copyInfo(v.info))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// SignedURL is not available in memory.
func (s *Store) SignedURL(context.Context, string, core.SignedURLOptions) (string, error) {
	return "", core.ErrUnsupported
}

func (s *Store) lookup(key string) (object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objs[key]
	return obj, ok
}

func copyInfo(info core.Info) core.Info {
	info.Metadata = core.CloneMetadata(info.Metadata)
	return info
}
