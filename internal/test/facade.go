package test

import (
	"context"
	"sync"

	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/merge"
)

// WorkerFacadeStub implements the worker-facing facade surface. Batches is
// consumed one slice per poll; ExecuteFn overrides the default behaviour of
// recording the call and reporting success.
type WorkerFacadeStub struct {
	sync.Mutex

	Batches   [][]model.MergeGroup
	AutoMerge map[string]bool

	FetchErr  error
	EnableErr error
	ExecuteFn func(ctx context.Context, group model.MergeGroup) (*merge.Result, error)

	Executed []string
}

// GroupsForProcessing pops the next prepared batch.
func (s *WorkerFacadeStub) GroupsForProcessing(ctx context.Context, limit int) ([]model.MergeGroup, error) {
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	s.Lock()
	defer s.Unlock()
	if len(s.Batches) == 0 {
		return nil, nil
	}
	batch := s.Batches[0]
	s.Batches = s.Batches[1:]
	if limit > 0 && len(batch) > limit {
		batch = batch[:limit]
	}
	return batch, nil
}

// AutoMergeEnabled consults the AutoMerge map, defaulting to disabled.
func (s *WorkerFacadeStub) AutoMergeEnabled(ctx context.Context, shop string) (bool, error) {
	if s.EnableErr != nil {
		return false, s.EnableErr
	}
	s.Lock()
	defer s.Unlock()
	return s.AutoMerge[shop], nil
}

// ExecuteGroup records the execution and reports a completed merge.
func (s *WorkerFacadeStub) ExecuteGroup(ctx context.Context, group model.MergeGroup) (*merge.Result, error) {
	if s.ExecuteFn != nil {
		return s.ExecuteFn(ctx, group)
	}
	s.Lock()
	defer s.Unlock()
	s.Executed = append(s.Executed, group.ID)
	return &merge.Result{GroupID: group.ID, DraftID: "draft-1", NewOrderID: "order-1", Completed: true}, nil
}
