package storage

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
)

// MemoryStore is an ObjectStore held in process memory. It backs the archive
// when no object store endpoint is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

type memoryObject struct {
	body []byte
	info ObjectInfo
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memoryObject{}, now: time.Now}
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ PutOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return ObjectInfo{}, fmt.Errorf("object key is required")
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("read object body: %w", err)
	}
	sum := md5.Sum(data)
	info := ObjectInfo{Key: key, Size: int64(len(data)), ETag: hex.EncodeToString(sum[:]), LastModified: m.now().UTC()}

	m.mu.Lock()
	m.objects[key] = memoryObject{body: data, info: info}
	m.mu.Unlock()
	return info, nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[strings.TrimPrefix(key, "/")]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.body)), nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix = strings.TrimPrefix(prefix, "/")
	m.mu.RLock()
	out := make([]ObjectInfo, 0, len(m.objects))
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, obj.info)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
