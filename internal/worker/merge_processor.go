package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reno-apps/ordermerge/internal/domain/model"
	"github.com/reno-apps/ordermerge/internal/merge"
)

// MergeFacade exposes the subset of application functionality required by the worker.
type MergeFacade interface {
	GroupsForProcessing(ctx context.Context, limit int) ([]model.MergeGroup, error)
	AutoMergeEnabled(ctx context.Context, shop string) (bool, error)
	ExecuteGroup(ctx context.Context, group model.MergeGroup) (*merge.Result, error)
}

// MergeProcessor polls for pending merge groups and executes them
// concurrently for shops that opted into unattended merging.
type MergeProcessor struct {
	facade       MergeFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.MergeGroup
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewMergeProcessor constructs merge processor worker pool.
func NewMergeProcessor(facade MergeFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *MergeProcessor {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &MergeProcessor{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.MergeGroup, batchSize*workers),
	}
}

// Start launches background processing.
func (p *MergeProcessor) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *MergeProcessor) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *MergeProcessor) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx)
		}
	}
}

func (p *MergeProcessor) fetchAndDispatch(ctx context.Context) {
	groups, err := p.facade.GroupsForProcessing(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("fetch groups for processing failed", slog.String("error", err.Error()))
		return
	}
	for _, group := range groups {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- group:
		}
	}
}

func (p *MergeProcessor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case group, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handleGroup(ctx, group)
		}
	}
}

func (p *MergeProcessor) handleGroup(ctx context.Context, group model.MergeGroup) {
	enabled, err := p.facade.AutoMergeEnabled(ctx, group.Shop)
	if err != nil {
		p.logger.Error("auto-merge check failed",
			slog.String("shop", group.Shop), slog.String("error", err.Error()))
		return
	}
	if !enabled {
		// The group stays pending for manual review.
		return
	}

	result, err := p.facade.ExecuteGroup(ctx, group)
	if err != nil {
		// Already recorded on the group; nothing to retry here.
		p.logger.Warn("background merge failed",
			slog.String("shop", group.Shop),
			slog.String("group", group.ID),
			slog.String("error", err.Error()))
		return
	}
	p.logger.Info("background merge finished",
		slog.String("shop", group.Shop),
		slog.String("group", result.GroupID),
		slog.Bool("completed", result.Completed))
}
