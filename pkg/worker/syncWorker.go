// Package worker drains the outbox: on every tick it selects due events,
// coalesces them per business entity, maps each selected event to an
// outbound document and hands it to the delivery connector, recording the
// outcome and the next retry schedule on the event.
package worker

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/otodash/erp-sync/pkg/connector"
	"github.com/otodash/erp-sync/pkg/domain"
	"github.com/otodash/erp-sync/pkg/mapper"
	"github.com/otodash/erp-sync/pkg/metrics"
	"github.com/otodash/erp-sync/pkg/store"
)

const defaultPollInterval = 10 * time.Second

// SyncWorker is the single logical scheduler of the delivery pipeline. At
// most one tick body executes at a time; a tick that finds the guard held
// is skipped entirely rather than queued.
type SyncWorker struct {
	store     store.EventStore
	connector connector.Connector
	snapshots domain.SnapshotSource
	clock     clockwork.Clock
	metrics   *metrics.SyncMetrics
	tracer    trace.Tracer

	pollInterval time.Duration

	tickMu   sync.Mutex // re-entrancy guard, released via defer
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

type Options struct {
	PollInterval time.Duration
	Clock        clockwork.Clock
	Metrics      *metrics.SyncMetrics
}

func NewSyncWorker(st store.EventStore, conn connector.Connector, snapshots domain.SnapshotSource, opts Options) *SyncWorker {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &SyncWorker{
		store:        st,
		connector:    conn,
		snapshots:    snapshots,
		clock:        clock,
		metrics:      opts.Metrics,
		tracer:       otel.Tracer("erp-sync"),
		pollInterval: interval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the tick loop: once immediately, then on every poll
// interval, until Stop is called or the context is canceled. An in-flight
// tick always runs to completion.
func (w *SyncWorker) Start(ctx context.Context) {
	go func() {
		defer close(w.done)

		w.Tick(ctx)

		ticker := w.clock.NewTicker(w.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.Chan():
				w.Tick(ctx)
			}
		}
	}()
}

// Stop cancels the timer and waits for the loop to exit. The tick in
// progress, if any, completes normally.
func (w *SyncWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

// Tick drains the currently due events, at most one delivery attempt per
// business entity. Individual delivery failures are recorded on the event
// and never abort the tick.
func (w *SyncWorker) Tick(ctx context.Context) {
	if !w.tickMu.TryLock() {
		w.metrics.IncTick("skipped")
		log.Debug().Msg("tick already running, skipping")
		return
	}
	defer w.tickMu.Unlock()

	now := w.clock.Now()
	due, err := w.store.ListDue(ctx, now)
	if err != nil {
		// Fail open: a transiently unreadable store must not kill the loop.
		log.Error().Err(err).Msg("listing due events failed")
		w.metrics.IncTick("error")
		return
	}
	w.metrics.SetQueueDepth(len(due))
	if len(due) == 0 {
		w.metrics.IncTick("empty")
		return
	}
	w.metrics.IncTick("run")

	// Oldest first, a fairness guarantee across entities.
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})

	processed := make(map[string]struct{})
	for _, event := range due {
		key := event.TenantID + "/" + event.EntityID
		if _, seen := processed[key]; seen {
			continue
		}
		processed[key] = struct{}{}
		w.process(ctx, event)
	}
}

func (w *SyncWorker) process(ctx context.Context, event store.OutboxEvent) {
	ctx, span := w.tracer.Start(ctx, "ProcessOutboxEvent", trace.WithAttributes(
		attribute.String("event.id", event.ID),
		attribute.String("event.tenant_id", event.TenantID),
		attribute.String("event.entity_id", event.EntityID),
		attribute.String("event.type", string(event.Type)),
		attribute.String("event.status", string(event.Status)),
		attribute.Int("event.attempts", event.Attempts),
	))
	defer span.End()

	snapshot, _ := w.snapshots.GetEntitySnapshot(event.TenantID, event.EntityID)
	doc := mapper.MapEvent(event, snapshot)

	start := time.Now()
	err := w.connector.Deliver(ctx, doc)
	w.metrics.ObserveDelivery(time.Since(start))

	if err == nil {
		if markErr := w.store.MarkSent(ctx, event.ID); markErr != nil {
			log.Error().Err(markErr).Str("event_id", event.ID).Msg("marking event sent failed")
			span.RecordError(markErr)
		}
		w.metrics.IncDelivery("sent")
		log.Info().
			Str("event_id", event.ID).
			Str("tenant_id", event.TenantID).
			Str("entity_id", event.EntityID).
			Str("operation", string(doc.Operation)).
			Msg("event delivered")
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	delay := Backoff(event.Attempts + 1)
	outcome := "transient_failure"
	if connector.IsPermanent(err) {
		delay = permanentHold
		outcome = "permanent_failure"
	}
	if markErr := w.store.MarkFailed(ctx, event.ID, err, delay); markErr != nil {
		log.Error().Err(markErr).Str("event_id", event.ID).Msg("marking event failed failed")
		span.RecordError(markErr)
	}
	w.metrics.IncDelivery(outcome)
	log.Warn().
		Err(err).
		Str("event_id", event.ID).
		Str("tenant_id", event.TenantID).
		Str("entity_id", event.EntityID).
		Int("attempt", event.Attempts+1).
		Dur("next_retry_in", delay).
		Msg("event delivery failed")
}
