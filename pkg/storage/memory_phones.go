package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/matst80/killu-finder/pkg/types"
)

// MemoryPhoneStore answers phone queries from an in-process catalogue with
// the same semantics as the Firestore query: equality filters, documents
// without the order field left out when ordering, then the limit.
type MemoryPhoneStore struct {
	mu     sync.RWMutex
	phones []types.PhoneRecord
}

func NewMemoryPhoneStore(phones ...types.PhoneRecord) *MemoryPhoneStore {
	return &MemoryPhoneStore{phones: phones}
}

// LoadMemoryPhoneStore reads a JSON array of phone documents. A document's
// "id" field becomes the record id, otherwise its position is used.
func LoadMemoryPhoneStore(disk *DiskStorage, filename string) (*MemoryPhoneStore, error) {
	docs := make([]map[string]any, 0)
	if err := disk.LoadJson(&docs, filename); err != nil {
		return nil, err
	}
	store := NewMemoryPhoneStore()
	for i, doc := range docs {
		id, ok := doc["id"].(string)
		if !ok || id == "" {
			id = fmt.Sprintf("%d", i)
		}
		delete(doc, "id")
		store.phones = append(store.phones, types.PhoneRecord{ID: id, Fields: doc})
	}
	return store, nil
}

func (s *MemoryPhoneStore) Upsert(phones ...types.PhoneRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range phones {
		idx := slices.IndexFunc(s.phones, func(e types.PhoneRecord) bool { return e.ID == p.ID })
		if idx >= 0 {
			s.phones[idx] = p
		} else {
			s.phones = append(s.phones, p)
		}
	}
}

func (s *MemoryPhoneStore) All() []types.PhoneRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.phones)
}

func (s *MemoryPhoneStore) GetPhones(ctx context.Context, q types.QuerySpec) ([]types.PhoneRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields := q.FilterFields()
	ret := make([]types.PhoneRecord, 0)
	for _, p := range s.phones {
		if matches(p, q, fields) {
			ret = append(ret, p)
		}
	}

	if q.OrderByField != "" {
		ret = slices.DeleteFunc(ret, func(p types.PhoneRecord) bool {
			_, ok := p.Number(q.OrderByField)
			return !ok
		})
		slices.SortStableFunc(ret, func(a, b types.PhoneRecord) int {
			av, _ := a.Number(q.OrderByField)
			bv, _ := b.Number(q.OrderByField)
			if q.OrderDirection == types.Ascending {
				return cmp.Compare(av, bv)
			}
			return cmp.Compare(bv, av)
		})
	}
	if q.Limit > 0 && len(ret) > q.Limit {
		ret = ret[:q.Limit]
	}
	return ret, nil
}

func matches(p types.PhoneRecord, q types.QuerySpec, fields []string) bool {
	for _, field := range fields {
		want := q.Filters[field]
		if want == "" {
			continue
		}
		if p.String(field) != want {
			return false
		}
	}
	return true
}
