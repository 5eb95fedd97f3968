package cache

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/relay-hub/relay-hub/internal/metrics"
)

// ErrObjectTooLarge 表示对象超过单对象上限，缓存拒绝写入。
var ErrObjectTooLarge = errors.New("object exceeds per-object cache limit")

// Store 负责管理内存对象缓存的读写。所有操作整体持锁执行，
// 任何观察者都不会看到中间状态的链表或字节计数。
type Store interface {
	// Lookup 返回 key 对应的缓存值副本；命中时条目被提升到最近使用位。
	Lookup(key string) ([]byte, bool)

	// Insert 写入新对象。key 已存在时为 no-op（先写者胜出）；
	// 超过单对象上限时返回 ErrObjectTooLarge；否则按 LRU 从尾部淘汰直至放得下。
	Insert(key string, value []byte) error

	// Len 返回当前条目数。
	Len() int

	// TotalBytes 返回当前正文字节总量。
	TotalBytes() int64

	// MaxObjectSize 返回单对象上限，供调用方提前界定积累缓冲。
	MaxObjectSize() int64

	// Purge 清空全部条目，用于停机释放与诊断重置。
	Purge()

	// Stats 返回当前用量与累计命中/淘汰计数快照。
	Stats() Stats
}

// Stats 是缓存状态快照，供诊断接口输出。
type Stats struct {
	Entries       int    `json:"entries"`
	TotalBytes    int64  `json:"total_bytes"`
	MaxCacheSize  int64  `json:"max_cache_size"`
	MaxObjectSize int64  `json:"max_object_size"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Insertions    uint64 `json:"insertions"`
	Evictions     uint64 `json:"evictions"`
	Rejections    uint64 `json:"rejections"`
}

// NewStore 构建对象缓存，整个进程复用一份实例。
// maxObjectSize 必须介于 1 与 maxCacheSize 之间，否则合法对象可能永远无法入缓存。
func NewStore(maxCacheSize, maxObjectSize int64, m *metrics.Metrics) (Store, error) {
	if maxCacheSize <= 0 {
		return nil, errors.New("max cache size must be positive")
	}
	if maxObjectSize <= 0 {
		return nil, errors.New("max object size must be positive")
	}
	if maxObjectSize > maxCacheSize {
		return nil, fmt.Errorf("max object size %d exceeds max cache size %d", maxObjectSize, maxCacheSize)
	}

	return &lruStore{
		maxCacheSize:  maxCacheSize,
		maxObjectSize: maxObjectSize,
		metrics:       m,
		order:         list.New(),
		index:         make(map[string]*list.Element),
	}, nil
}

// lruStore 以 container/list + map 实现 O(1) 的提升与淘汰。
// 链表头部为最近使用端，尾部为最久未用端。
type lruStore struct {
	maxCacheSize  int64
	maxObjectSize int64
	metrics       *metrics.Metrics

	mu         sync.Mutex
	order      *list.List
	index      map[string]*list.Element
	totalBytes int64

	hits       uint64
	misses     uint64
	insertions uint64
	evictions  uint64
	rejections uint64
}

type object struct {
	key   string
	value []byte
}

func (s *lruStore) Lookup(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.index[key]
	if !ok {
		s.misses++
		s.metrics.ObserveLookup(false)
		return nil, false
	}

	s.order.MoveToFront(el)
	s.hits++
	s.metrics.ObserveLookup(true)

	// 返回副本，调用方不可能改写缓存内的正文。
	obj := el.Value.(*object)
	return append([]byte(nil), obj.value...), true
}

func (s *lruStore) Insert(key string, value []byte) error {
	size := int64(len(value))

	s.mu.Lock()
	defer s.mu.Unlock()

	if size > s.maxObjectSize {
		s.rejections++
		s.metrics.ObserveRejection()
		return ErrObjectTooLarge
	}

	// 并发回源时两个 handler 可能抓取同一 URI，先写者胜出。
	if _, exists := s.index[key]; exists {
		return nil
	}

	evicted := 0
	for s.totalBytes+size > s.maxCacheSize {
		tail := s.order.Back()
		if tail == nil {
			break
		}
		s.removeElement(tail)
		evicted++
	}
	if evicted > 0 {
		s.evictions += uint64(evicted)
		s.metrics.ObserveEviction(evicted)
	}

	obj := &object{key: key, value: append([]byte(nil), value...)}
	s.index[key] = s.order.PushFront(obj)
	s.totalBytes += size
	s.insertions++
	s.metrics.ObserveInsertion()
	s.metrics.SetCacheUsage(s.totalBytes, len(s.index))
	return nil
}

func (s *lruStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

func (s *lruStore) TotalBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalBytes
}

func (s *lruStore) MaxObjectSize() int64 {
	return s.maxObjectSize
}

func (s *lruStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	s.index = make(map[string]*list.Element)
	s.totalBytes = 0
	s.metrics.SetCacheUsage(0, 0)
}

func (s *lruStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Entries:       len(s.index),
		TotalBytes:    s.totalBytes,
		MaxCacheSize:  s.maxCacheSize,
		MaxObjectSize: s.maxObjectSize,
		Hits:          s.hits,
		Misses:        s.misses,
		Insertions:    s.insertions,
		Evictions:     s.evictions,
		Rejections:    s.rejections,
	}
}

// removeElement 摘除单个条目并同步字节计数，调用方需持有 s.mu。
func (s *lruStore) removeElement(el *list.Element) {
	obj := s.order.Remove(el).(*object)
	delete(s.index, obj.key)
	s.totalBytes -= int64(len(obj.value))
}

// keysByRecency 返回最近使用优先的 key 序列，仅测试与诊断使用。
func (s *lruStore) keysByRecency() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*object).key)
	}
	return keys
}
