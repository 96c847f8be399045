package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prepexam/prepexam-backend/internal/config"
	"github.com/prepexam/prepexam-backend/internal/model"
	"github.com/prepexam/prepexam-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const eventBatchSize = 50

// SessionEventWorker consumes the session audit queue and persists events to
// PostgreSQL in batches, keeping the hot submission path free of audit
// writes.
type SessionEventWorker struct {
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewSessionEventWorker creates a new SessionEventWorker.
func NewSessionEventWorker(sessionRepo *repository.SessionRepository, rdb *redis.Client, log zerolog.Logger) *SessionEventWorker {
	return &SessionEventWorker{
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "session_event_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *SessionEventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

// processNext blocks for the next event, then opportunistically gathers a
// batch so bursts land in one transaction.
func (w *SessionEventWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.SessionEventsQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	raw := [][]byte{[]byte(result[1])}
	for len(raw) < eventBatchSize {
		next, err := w.rdb.LPop(ctx, config.WorkerKey.SessionEventsQueue).Result()
		if err != nil {
			break
		}
		raw = append(raw, []byte(next))
	}

	events := make([]model.SessionEvent, 0, len(raw))
	for _, data := range raw {
		var ev model.SessionEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			w.log.Error().Err(err).Msg("Unmarshal error, dropping event")
			continue
		}
		events = append(events, ev)
	}

	if err := w.persistEvents(ctx, events, raw); err != nil {
		w.log.Error().Err(err).Int("count", len(events)).Msg("Persist error, retrying in 5s")
		time.Sleep(5 * time.Second)
	}
}

// persistEvents writes one batch; on failure the raw payloads go back on the
// queue so nothing is lost across restarts.
func (w *SessionEventWorker) persistEvents(ctx context.Context, events []model.SessionEvent, raw [][]byte) error {
	if len(events) == 0 {
		return nil
	}
	if err := w.sessionRepo.InsertEvents(ctx, events); err != nil {
		for _, data := range raw {
			w.rdb.RPush(ctx, config.WorkerKey.SessionEventsQueue, data)
		}
		return err
	}
	return nil
}

// drain processes all remaining items in the queue before shutdown.
func (w *SessionEventWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.SessionEventsQueue).Result()
		if err != nil {
			break
		}

		var ev model.SessionEvent
		if err := json.Unmarshal([]byte(result), &ev); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.sessionRepo.InsertEvents(ctx, []model.SessionEvent{ev}); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.SessionEventsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
