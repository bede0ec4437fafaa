package models

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

const (
	ErrTypeInvalidIndex  = "invalid_index"
	ErrTypeIndexExists   = "index_exists"
	ErrTypeIndexNotFound = "index_not_found"
	ErrTypeNodeDropped   = "node_dropped"
)

// IndexStore holds the indexes served by Bento.
type IndexStore struct {
	initOnce sync.Once
	mutex    sync.RWMutex
	indexes  map[uint32]*Index
	names    map[string]uint32
	ids      SequentialIDGenerator
}

func (s *IndexStore) init() {
	s.indexes = map[uint32]*Index{}
	s.names = map[string]uint32{}
}

func (s *IndexStore) NewID() uint32 {
	return s.ids.New()
}

// Create creates an index and adds it to the store.
func (s *IndexStore) Create(ctx context.Context, conf IndexConfig) (*Index, error) {
	id := s.NewID()

	index, err := NewIndex(id, conf)
	if err != nil {
		s.ids.Reuse(id)
		return nil, err
	}

	if err := s.Add(ctx, index); err != nil {
		s.ids.Reuse(id)
		return nil, err
	}
	return index, nil
}

// Add adds an index to the store. Index names are unique.
func (s *IndexStore) Add(ctx context.Context, index *Index) error {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.names[index.Name]; ok {
		return errors.New("index already exists").
			WithType(ErrTypeIndexExists).
			WithTag("index", index.Name)
	}

	s.indexes[index.ID] = index
	s.names[index.Name] = index.ID
	s.ids.Observe(index.ID)

	logs.WithTag("index", index.Name).
		WithTag("index_id", index.ID).
		WithTag("bucket_capacity", index.BucketCapacity()).
		Info("index created")

	instrumentIncreaseIndexGauge()
	instrumentCountIndex()
	return nil
}

func (s *IndexStore) Remove(ctx context.Context, index *Index) {
	s.initOnce.Do(s.init)
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.indexes[index.ID]; !ok {
		return
	}

	delete(s.indexes, index.ID)
	delete(s.names, index.Name)
	s.ids.Reuse(index.ID)

	logs.WithTag("index", index.Name).
		WithTag("index_id", index.ID).
		Info("index removed")

	instrumentDecreaseIndexGauge(index.Name)
}

// Get returns the index with the given id.
func (s *IndexStore) Get(id uint32) (*Index, bool) {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	index, ok := s.indexes[id]
	return index, ok
}

func (s *IndexStore) GetByName(name string) (*Index, bool) {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	id, ok := s.names[name]
	if !ok {
		return nil, false
	}
	return s.indexes[id], true
}

// Lookup resolves an index reference which is either a numeric id or a name.
func (s *IndexStore) Lookup(ref string) (*Index, error) {
	if id, ok := parseIndexID(ref); ok {
		if index, ok := s.Get(id); ok {
			return index, nil
		}
	}

	if index, ok := s.GetByName(ref); ok {
		return index, nil
	}

	return nil, errors.New("index not found").
		WithType(ErrTypeIndexNotFound).
		WithTag("index", ref)
}

func parseIndexID(ref string) (uint32, bool) {
	id, err := strconv.ParseUint(ref, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(id), true
}

// List returns the indexes sorted by id.
func (s *IndexStore) List() []*Index {
	s.initOnce.Do(s.init)
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	indexes := make([]*Index, 0, len(s.indexes))
	for _, index := range s.indexes {
		indexes = append(indexes, index)
	}
	slices.SortFunc(indexes, func(a, b *Index) int {
		return int(a.ID) - int(b.ID)
	})
	return indexes
}
