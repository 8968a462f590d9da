package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/fieldsales-agent/internal/outbox"
	"github.com/benmeehan/fieldsales-agent/internal/utils"
	"github.com/benmeehan/fieldsales-agent/pkg/backend"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// OutboxService retries records that could not be delivered when they were submitted.
type OutboxService struct {
	store     outbox.Store
	backend   backend.Caller
	interval  time.Duration
	batchSize int
	workers   int
	logger    zerolog.Logger

	inFlight cmap.ConcurrentMap[string, struct{}]

	mu     sync.Mutex
	pool   *utils.WorkerPool
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxService creates an OutboxService.
func NewOutboxService(store outbox.Store, backendClient backend.Caller, interval time.Duration, batchSize, workers int,
	logger zerolog.Logger) *OutboxService {
	if batchSize < 1 {
		batchSize = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &OutboxService{
		store:     store,
		backend:   backendClient,
		interval:  interval,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
		inFlight:  cmap.New[struct{}](),
	}
}

// Start launches the retry loop and its worker pool.
func (o *OutboxService) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx != nil {
		o.logger.Warn().Msg("OutboxService is already running")
		return errors.New("outbox service is already running")
	}

	o.ctx, o.cancel = context.WithCancel(context.Background())
	o.pool = utils.NewWorkerPool(o.workers, o.logger)

	o.wg.Add(1)
	go func(ctx context.Context, pool *utils.WorkerPool) {
		defer o.wg.Done()

		ticker := time.NewTicker(o.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := o.flush(ctx, pool); err != nil {
					o.logger.Error().Err(err).Msg("Outbox flush failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}(o.ctx, o.pool)

	o.logger.Info().Dur("interval", o.interval).Int("workers", o.workers).Msg("OutboxService started")
	return nil
}

// Stop ends the retry loop and waits for deliveries in progress.
func (o *OutboxService) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx == nil {
		o.logger.Warn().Msg("OutboxService is not running")
		return errors.New("outbox service is not running")
	}

	o.cancel()
	o.wg.Wait()
	o.pool.Shutdown()

	o.ctx = nil
	o.cancel = nil
	o.pool = nil

	o.logger.Info().Msg("OutboxService stopped")
	return nil
}

// Flush delivers one batch of pending records with a temporary worker pool and returns how many were sent.
func (o *OutboxService) Flush(ctx context.Context) (int, error) {
	pool := utils.NewWorkerPool(o.workers, o.logger)
	defer pool.Shutdown()

	return o.flush(ctx, pool)
}

// flush hands pending records to the pool and waits for the batch.
// Records already being delivered by a concurrent flush are skipped.
func (o *OutboxService) flush(ctx context.Context, pool *utils.WorkerPool) (int, error) {
	entries, err := o.store.Pending(ctx, o.batchSize)
	if err != nil {
		return 0, err
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
	)
	for _, entry := range entries {
		entry := entry
		if !o.inFlight.SetIfAbsent(entry.ID, struct{}{}) {
			continue
		}

		wg.Add(1)
		submitted := pool.Submit(entry.ID, func() {
			defer wg.Done()
			defer o.inFlight.Remove(entry.ID)

			if o.deliver(ctx, entry) {
				mu.Lock()
				sent++
				mu.Unlock()
			}
		})
		if !submitted {
			wg.Done()
			o.inFlight.Remove(entry.ID)
		}
	}
	wg.Wait()

	if len(entries) > 0 {
		o.logger.Info().Int("pending", len(entries)).Int("sent", sent).Msg("Outbox flushed")
	}
	return sent, nil
}

func (o *OutboxService) deliver(ctx context.Context, entry outbox.Entry) bool {
	// Bookkeeping must land even when Stop cancels ctx mid-delivery
	storeCtx := context.WithoutCancel(ctx)

	params := map[string]any{"record": json.RawMessage(entry.Payload)}
	if err := o.backend.Call(ctx, entry.Action, params, nil); err != nil {
		if !errors.Is(err, backend.ErrUnreachable) && ctx.Err() == nil {
			// Only transport failures are retried
			o.logger.Error().Err(err).Str("id", entry.ID).Str("action", entry.Action).Msg("Outbox record rejected, discarding")
			if dErr := o.store.Discard(storeCtx, entry.ID, err); dErr != nil {
				o.logger.Error().Err(dErr).Str("id", entry.ID).Msg("Failed to discard rejected record")
			}
			return false
		}

		o.logger.Warn().Err(err).Str("id", entry.ID).Int("attempts", entry.Attempts+1).Msg("Outbox delivery failed")
		if rErr := o.store.RecordFailure(storeCtx, entry.ID, err); rErr != nil {
			o.logger.Error().Err(rErr).Str("id", entry.ID).Msg("Failed to record outbox failure")
		}
		return false
	}

	if err := o.store.MarkSent(storeCtx, entry.ID); err != nil {
		o.logger.Error().Err(err).Str("id", entry.ID).Msg("Failed to remove delivered record from outbox")
		return false
	}
	return true
}
