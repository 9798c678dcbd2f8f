package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/triggerd/internal/metrics"
	"github.com/edvin/triggerd/internal/model"
	"github.com/edvin/triggerd/internal/schedule"
	"github.com/edvin/triggerd/internal/store"
)

// Generator materializes upcoming occurrences of recurring triggers into the
// event table. Each top-up starts after the latest occurrence on record (or
// after now for a trigger with none), so for a caught-up trigger it inserts
// only future-dated rows and does not contend with the processor's claim on
// past-due rows.
type Generator struct {
	store    EventStore
	catalog  CatalogSource
	logger   zerolog.Logger
	interval time.Duration
}

func NewGenerator(st EventStore, cat CatalogSource, logger zerolog.Logger, interval time.Duration) *Generator {
	return &Generator{
		store:    st,
		catalog:  cat,
		logger:   logger.With().Str("component", "generator").Logger(),
		interval: interval,
	}
}

// Run executes hydration iterations until ctx is cancelled.
func (g *Generator) Run(ctx context.Context) {
	g.logger.Info().Dur("interval", g.interval).Msg("starting generator loop")

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		if err := g.runOnce(ctx); err != nil && ctx.Err() == nil {
			g.logger.Error().Err(err).Msg("hydration iteration failed")
		}

		select {
		case <-ctx.Done():
			g.logger.Info().Msg("generator loop stopped")
			return
		case <-ticker.C:
		}
	}
}

func (g *Generator) runOnce(ctx context.Context) error {
	triggers, err := g.catalog.Snapshot()
	if err != nil {
		if triggers == nil {
			return err
		}
		g.logger.Warn().Err(err).Msg("catalog reload failed, using last good snapshot")
	}
	if len(triggers) == 0 {
		return nil
	}

	names := make([]string, 0, len(triggers))
	for name := range triggers {
		names = append(names, name)
	}

	stats, err := g.store.FetchDeprivedStats(ctx, names)
	if err != nil {
		return err
	}

	var seeds []model.CronEventSeed
	for _, st := range stats {
		def, ok := triggers[st.TriggerName]
		if !ok {
			g.logger.Error().Str("trigger", st.TriggerName).Msg("deprived trigger has no catalog definition")
			continue
		}

		start := time.Now()
		if st.MaxScheduledTime != nil {
			start = *st.MaxScheduledTime
		}

		times, err := schedule.Upcoming(start, store.HydrationThreshold, def.Schedule)
		if err != nil {
			g.logger.Error().Err(err).Str("trigger", st.TriggerName).Msg("computing upcoming occurrences failed")
			continue
		}

		for _, ts := range times {
			seeds = append(seeds, model.CronEventSeed{TriggerName: st.TriggerName, ScheduledTime: ts})
		}
	}

	if len(seeds) == 0 {
		return nil
	}

	if err := g.store.InsertCronSeeds(ctx, seeds); err != nil {
		return err
	}
	metrics.SeedsInserted.Add(float64(len(seeds)))

	g.logger.Debug().Int("seeds", len(seeds)).Int("deprived_triggers", len(stats)).Msg("hydrated cron events")
	return nil
}
