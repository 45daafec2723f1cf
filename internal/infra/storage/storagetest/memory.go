// Package storagetest 提供一个内存对象存储，用于服务层测试
package storagetest

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/photox-team/photox-app/internal/infra/storage"
)

const Domain = "https://cdn.test"

// Memory 把上传内容保存在内存中，PutErr / DeleteErr 非空时对应操作失败
type Memory struct {
	mu        sync.Mutex
	objects   map[string][]byte
	PutErr    error
	DeleteErr error
	Deleted   []string
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, localPath, key string) (string, error) {
	if m.PutErr != nil {
		return "", m.PutErr
	}
	// 与真实 SDK 一样，已取消的上下文直接失败
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return m.URL(key), nil
}

// Get 返回对象内容，对象不存在时返回 storage.ErrObjectNotFound
func (m *Memory) Get(ctx context.Context, publicURL string) (io.ReadCloser, error) {
	key := strings.TrimPrefix(publicURL, Domain+"/")
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Seed 直接写入对象内容
func (m *Memory) Seed(key string, data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return m.URL(key)
}

func (m *Memory) Delete(ctx context.Context, publicURL string) (bool, error) {
	if m.DeleteErr != nil {
		return false, m.DeleteErr
	}
	key := strings.TrimPrefix(publicURL, Domain+"/")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, key)
	if _, ok := m.objects[key]; !ok {
		return false, nil
	}
	delete(m.objects, key)
	return true, nil
}

func (m *Memory) URL(key string) string {
	return Domain + "/" + key
}

// Keys 返回当前存储中的全部对象键
func (m *Memory) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

// Has 判断对象是否存在
func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
