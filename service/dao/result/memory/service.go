package memory

import (
	"context"

	"github.com/viant/parally/service/dao"
	"github.com/viant/parally/service/dao/result"
	"github.com/viant/parally/service/dao/store"
)

// Service keeps journaled results in memory.
type Service struct {
	*store.MemoryStore[string, result.Record]
}

var _ dao.Service[string, result.Record] = (*Service)(nil)

// Save validates and stores the record.
func (s *Service) Save(ctx context.Context, record *result.Record) error {
	if record == nil {
		return dao.ErrNilEntity
	}
	if record.ID == "" {
		return dao.ErrInvalidID
	}
	return s.MemoryStore.Save(ctx, record)
}

func New() *Service {
	memoryStore := store.NewMemoryStore[string, result.Record](func(r *result.Record) string { return r.ID }).
		WithFieldSelector(func(r *result.Record, name string) interface{} { return r.Field(name) })
	return &Service{MemoryStore: memoryStore}
}
