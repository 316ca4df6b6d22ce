// Package memory implements an in-memory blob store used in tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"surveyscope/internal/blob/core"
)

var _ core.Store = (*Store)(nil)

// Store keeps blobs in a map guarded by a RWMutex.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

type object struct {
	info    core.Info
	payload []byte
}

// New constructs an empty in-memory blob store.
func New() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put stores a new immutable object; it fails if the key already exists.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.TrimSpace(key) == "" {
		return core.Info{}, fmt.Errorf("empty key")
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objects[key]; exists {
		return core.Info{}, fmt.Errorf("blob %s already exists", key)
	}
	info := core.Info{
		Key:          key,
		Size:         int64(len(payload)),
		ContentType:  opts.ContentType,
		Metadata:     cloneMeta(opts.Metadata),
		LastModified: time.Now().UTC(),
		URL:          "memory://" + key,
	}
	s.objects[key] = object{info: info, payload: payload}
	return info, nil
}

func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return core.Info{}, nil, core.ErrNotFound
	}
	cp := make([]byte, len(obj.payload))
	copy(cp, obj.payload)
	return obj.info, io.NopCloser(bytes.NewReader(cp)), nil
}

func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	_, existed := s.objects[key]
	delete(s.objects, key)
	s.mu.Unlock()
	return existed, nil
}

func (s *Store) List(_ context.Context, prefix string) ([]core.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Info, 0, len(s.objects))
	for key, obj := range s.objects {
		if prefix == "" || strings.HasPrefix(key, prefix) {
			out = append(out, obj.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func cloneMeta(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
