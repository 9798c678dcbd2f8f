package store

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/triggerd/internal/model"
)

// InsertInvocation records one delivery attempt and bumps the owning event's
// tries counter. The CTE keeps both writes in one statement, so a crash can
// never log an invocation without counting it, or the reverse.
func (s *EventStore) InsertInvocation(ctx context.Context, inv model.Invocation, class model.EventClass) error {
	query := fmt.Sprintf(
		`WITH inserted AS (
		     INSERT INTO %s (event_id, status, request, response)
		     VALUES ($1, $2, $3, $4)
		 )
		 UPDATE %s SET tries = tries + 1 WHERE id = $1`,
		invocationLogsTable(class), eventsTable(class),
	)

	_, err := s.db.Exec(ctx, query, inv.EventID, inv.Status, []byte(inv.Request), []byte(inv.Response))
	if err != nil {
		return fmt.Errorf("insert invocation for event %s: %w", inv.EventID, err)
	}
	return nil
}

// SetStatus sets an event's status unconditionally.
func (s *EventStore) SetStatus(ctx context.Context, id string, status model.EventStatus, class model.EventClass) error {
	query := fmt.Sprintf(`UPDATE %s SET status = $2 WHERE id = $1`, eventsTable(class))

	_, err := s.db.Exec(ctx, query, id, status.String())
	if err != nil {
		return fmt.Errorf("set status of event %s to %s: %w", id, status, err)
	}
	return nil
}

// SetRetry returns an event to the queue with a retry time that supersedes
// its scheduled time for dispatch decisions.
func (s *EventStore) SetRetry(ctx context.Context, id string, retryAt time.Time, class model.EventClass) error {
	query := fmt.Sprintf(
		`UPDATE %s SET next_retry_at = $2, status = 'scheduled' WHERE id = $1`,
		eventsTable(class),
	)

	_, err := s.db.Exec(ctx, query, id, retryAt)
	if err != nil {
		return fmt.Errorf("set retry of event %s: %w", id, err)
	}
	return nil
}

// UnlockCronEvents returns locked cron events to the queue. Only rows still
// locked transition; the count of rows actually moved is returned.
func (s *EventStore) UnlockCronEvents(ctx context.Context, ids []string) (int, error) {
	return s.unlock(ctx, "hdb_cron_events", ids)
}

// UnlockOneOffEvents returns locked one-off events to the queue.
func (s *EventStore) UnlockOneOffEvents(ctx context.Context, ids []string) (int, error) {
	return s.unlock(ctx, "hdb_scheduled_events", ids)
}

func (s *EventStore) unlock(ctx context.Context, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(
		`UPDATE %s SET status = 'scheduled' WHERE id = ANY($1) AND status = 'locked'`,
		table,
	)

	tag, err := s.db.Exec(ctx, query, ids)
	if err != nil {
		return 0, fmt.Errorf("unlock events in %s: %w", table, err)
	}
	return int(tag.RowsAffected()), nil
}

// UnlockAllLocked performs the startup blanket reset: every locked row in
// both tables goes back to scheduled. The locked status is a lease with no
// TTL, so a crashed replica's claims stay pinned until the next boot runs
// this.
func (s *EventStore) UnlockAllLocked(ctx context.Context) (int, error) {
	total := 0
	for _, table := range []string{"hdb_cron_events", "hdb_scheduled_events"} {
		tag, err := s.db.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET status = 'scheduled' WHERE status = 'locked'`, table),
		)
		if err != nil {
			return total, fmt.Errorf("unlock all locked in %s: %w", table, err)
		}
		total += int(tag.RowsAffected())
	}
	return total, nil
}
