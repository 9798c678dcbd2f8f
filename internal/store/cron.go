package store

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/triggerd/internal/model"
)

// FetchDeprivedStats returns, for each named trigger whose buffer of future
// scheduled events has fallen below HydrationThreshold, the current count and
// the latest scheduled time on record (nil when the trigger has no events at
// all). Triggers absent from the stats view count as zero.
func (s *EventStore) FetchDeprivedStats(ctx context.Context, triggerNames []string) ([]model.TriggerStats, error) {
	if len(triggerNames) == 0 {
		return nil, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT t.name, COALESCE(st.upcoming_events_count, 0), st.max_scheduled_time
		 FROM unnest($1::text[]) AS t(name)
		 LEFT JOIN hdb_cron_events_stats st ON st.name = t.name
		 WHERE COALESCE(st.upcoming_events_count, 0) < $2`,
		triggerNames, HydrationThreshold,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch deprived trigger stats: %w", err)
	}
	defer rows.Close()

	var stats []model.TriggerStats
	for rows.Next() {
		var st model.TriggerStats
		if err := rows.Scan(&st.TriggerName, &st.UpcomingEventsCount, &st.MaxScheduledTime); err != nil {
			return nil, fmt.Errorf("scan trigger stats: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trigger stats: %w", err)
	}
	return stats, nil
}

// InsertCronSeeds bulk-inserts future cron event rows. Re-inserting an
// occurrence that already exists is a no-op, which makes rehydration
// idempotent.
func (s *EventStore) InsertCronSeeds(ctx context.Context, seeds []model.CronEventSeed) error {
	if len(seeds) == 0 {
		return nil
	}

	names := make([]string, len(seeds))
	times := make([]time.Time, len(seeds))
	for i, seed := range seeds {
		names[i] = seed.TriggerName
		times[i] = seed.ScheduledTime
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO hdb_cron_events (trigger_name, scheduled_time)
		 SELECT t.trigger_name, t.scheduled_time
		 FROM unnest($1::text[], $2::timestamptz[]) AS t(trigger_name, scheduled_time)
		 ON CONFLICT (trigger_name, scheduled_time) DO NOTHING`,
		names, times,
	)
	if err != nil {
		return fmt.Errorf("insert cron event seeds: %w", err)
	}
	return nil
}

// LockDueCronEvents atomically claims every due cron event not already held
// by another replica and returns the claimed rows. SKIP LOCKED guarantees two
// replicas running this concurrently receive disjoint sets.
func (s *EventStore) LockDueCronEvents(ctx context.Context) ([]model.CronEvent, error) {
	rows, err := s.db.Query(ctx,
		`UPDATE hdb_cron_events
		 SET status = 'locked'
		 WHERE id IN (
		     SELECT id FROM hdb_cron_events
		     WHERE status = 'scheduled'
		       AND COALESCE(next_retry_at, scheduled_time) <= now()
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, trigger_name, scheduled_time, tries, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("lock due cron events: %w", err)
	}
	defer rows.Close()

	var events []model.CronEvent
	for rows.Next() {
		ev := model.CronEvent{Status: model.StatusLocked}
		if err := rows.Scan(&ev.ID, &ev.TriggerName, &ev.ScheduledTime, &ev.Tries, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan locked cron event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked cron events: %w", err)
	}
	return events, nil
}
