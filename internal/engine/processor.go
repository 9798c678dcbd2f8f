package engine

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/edvin/triggerd/internal/catalog"
	"github.com/edvin/triggerd/internal/metrics"
	"github.com/edvin/triggerd/internal/model"
)

// Processor claims due events, delivers them, and drives the lifecycle state
// machine. Cross-replica mutual exclusion comes entirely from the gateway's
// SKIP LOCKED claim; in-process the registry tracks what this replica owns.
type Processor struct {
	store       EventStore
	catalog     CatalogSource
	registry    *Registry
	deliverer   *Deliverer
	logger      zerolog.Logger
	interval    time.Duration
	concurrency int64

	draining atomic.Bool
}

func NewProcessor(st EventStore, cat CatalogSource, client *http.Client, logger zerolog.Logger, interval time.Duration, concurrency int) *Processor {
	p := &Processor{
		store:       st,
		catalog:     cat,
		registry:    NewRegistry(),
		logger:      logger.With().Str("component", "processor").Logger(),
		interval:    interval,
		concurrency: int64(concurrency),
	}
	p.deliverer = NewDeliverer(st, client, logger, &p.draining)
	return p
}

// Run executes processing iterations until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info().Dur("interval", p.interval).Msg("starting processor loop")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.runOnce(ctx)

		select {
		case <-ctx.Done():
			p.logger.Info().Msg("processor loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func (p *Processor) runOnce(ctx context.Context) {
	if p.draining.Load() {
		return
	}
	p.processCronEvents(ctx)
	p.processOneOffEvents(ctx)
}

// processCronEvents is phase A: claim due cron events and deliver each one
// joined with its catalog definition.
func (p *Processor) processCronEvents(ctx context.Context) {
	triggers, err := p.catalog.Snapshot()
	if err != nil {
		if triggers == nil {
			p.logger.Error().Err(err).Msg("no usable trigger catalog, skipping cron phase")
			return
		}
		p.logger.Warn().Err(err).Msg("catalog reload failed, using last good snapshot")
	}

	events, err := p.store.LockDueCronEvents(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("locking due cron events failed")
		return
	}
	if len(events) == 0 {
		return
	}
	metrics.EventsLocked.WithLabelValues(string(model.ClassCron)).Add(float64(len(events)))

	// Register before processing anything, so a shutdown mid-phase can hand
	// every claimed row back.
	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	p.registry.InsertMany(model.ClassCron, ids)

	p.fanOut(ctx, len(events), func(i int) {
		p.processCronEvent(ctx, events[i], triggers)
	})
}

func (p *Processor) processCronEvent(ctx context.Context, ev model.CronEvent, triggers map[string]catalog.TriggerDefinition) {
	logger := p.logger.With().Str("event", ev.ID).Str("trigger", ev.TriggerName).Logger()

	def, ok := triggers[ev.TriggerName]
	if !ok {
		// Leave the row locked and registered; the startup blanket unlock
		// recovers it once the catalog knows the trigger again.
		logger.Error().Msg("cron event refers to a trigger missing from the catalog")
		return
	}

	url, err := catalog.ResolveWebhook(def.Webhook)
	if err != nil {
		logger.Error().Err(err).Msg("resolving trigger webhook failed")
		return
	}
	headers, err := catalog.ResolveHeaders(def.Headers)
	if err != nil {
		logger.Error().Err(err).Msg("resolving trigger headers failed")
		return
	}

	full := &EventFull{
		ID:            ev.ID,
		Class:         model.ClassCron,
		TriggerName:   ev.TriggerName,
		ScheduledTime: ev.ScheduledTime,
		CreatedAt:     ev.CreatedAt,
		Tries:         ev.Tries,
		URL:           url,
		Headers:       headers,
		Payload:       def.PayloadJSON(),
		Retry:         def.Retry,
		Comment:       def.Comment,
	}

	if p.deliverer.Deliver(ctx, full) {
		p.registry.Remove(model.ClassCron, ev.ID)
	}
}

// processOneOffEvents is phase B: claim due one-off events, which carry
// their own configuration, and deliver them.
func (p *Processor) processOneOffEvents(ctx context.Context) {
	events, err := p.store.LockDueOneOffEvents(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("locking due one-off events failed")
		return
	}
	if len(events) == 0 {
		return
	}
	metrics.EventsLocked.WithLabelValues(string(model.ClassOneOff)).Add(float64(len(events)))

	ids := make([]string, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}
	p.registry.InsertMany(model.ClassOneOff, ids)

	p.fanOut(ctx, len(events), func(i int) {
		p.processOneOffEvent(ctx, events[i])
	})
}

func (p *Processor) processOneOffEvent(ctx context.Context, ev model.OneOffEvent) {
	logger := p.logger.With().Str("event", ev.ID).Logger()

	// Reference resolution can fail; that aborts only this event, leaving it
	// locked and registered for recovery on restart.
	url, err := catalog.ResolveWebhook(ev.WebhookConf)
	if err != nil {
		logger.Error().Err(err).Msg("resolving one-off webhook failed")
		return
	}
	headers, err := catalog.ResolveHeaders(ev.HeaderConf)
	if err != nil {
		logger.Error().Err(err).Msg("resolving one-off headers failed")
		return
	}

	full := &EventFull{
		ID:            ev.ID,
		Class:         model.ClassOneOff,
		ScheduledTime: ev.ScheduledTime,
		CreatedAt:     ev.CreatedAt,
		Tries:         ev.Tries,
		URL:           url,
		Headers:       headers,
		Payload:       ev.Payload,
		Retry:         ev.RetryConf,
		Comment:       ev.Comment,
	}

	if p.deliverer.Deliver(ctx, full) {
		p.registry.Remove(model.ClassOneOff, ev.ID)
	}
}

// fanOut runs fn(0..n-1) with at most p.concurrency in flight and waits for
// all of them, so the two phases stay sequential.
func (p *Processor) fanOut(ctx context.Context, n int, fn func(i int)) {
	sem := semaphore.NewWeighted(p.concurrency)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			fn(i)
		}(i)
	}
	wg.Wait()
}

// BeginDrain flips the shutdown flag: outcomes of attempts still in flight
// will no longer be written.
func (p *Processor) BeginDrain() {
	p.draining.Store(true)
}

// ReleaseLocked hands every event this replica still owns back to the queue.
// Call after the loops and in-flight deliveries have stopped.
func (p *Processor) ReleaseLocked(ctx context.Context) {
	cronIDs := p.registry.Snapshot(model.ClassCron)
	n, err := p.store.UnlockCronEvents(ctx, cronIDs)
	if err != nil {
		p.logger.Error().Err(err).Msg("unlocking cron events on shutdown failed")
	} else if len(cronIDs) > 0 {
		p.logger.Info().Int("unlocked", n).Int("held", len(cronIDs)).Msg("released cron event locks")
	}

	oneOffIDs := p.registry.Snapshot(model.ClassOneOff)
	n, err = p.store.UnlockOneOffEvents(ctx, oneOffIDs)
	if err != nil {
		p.logger.Error().Err(err).Msg("unlocking one-off events on shutdown failed")
	} else if len(oneOffIDs) > 0 {
		p.logger.Info().Int("unlocked", n).Int("held", len(oneOffIDs)).Msg("released one-off event locks")
	}
}
