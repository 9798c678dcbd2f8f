package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/triggerd/internal/model"
)

// LockDueOneOffEvents atomically claims every due one-off event not already
// held by another replica and returns the full self-describing rows.
func (s *EventStore) LockDueOneOffEvents(ctx context.Context) ([]model.OneOffEvent, error) {
	rows, err := s.db.Query(ctx,
		`UPDATE hdb_scheduled_events
		 SET status = 'locked'
		 WHERE id IN (
		     SELECT id FROM hdb_scheduled_events
		     WHERE status = 'scheduled'
		       AND COALESCE(next_retry_at, scheduled_time) <= now()
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, webhook_conf, scheduled_time, next_retry_at, payload,
		           retry_conf, header_conf, comment, tries, created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("lock due one-off events: %w", err)
	}
	defer rows.Close()

	var events []model.OneOffEvent
	for rows.Next() {
		ev, err := scanOneOffEvent(rows)
		if err != nil {
			return nil, err
		}
		ev.Status = model.StatusLocked
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locked one-off events: %w", err)
	}
	return events, nil
}

// InsertOneOffEvent persists a new one-off scheduled event.
func (s *EventStore) InsertOneOffEvent(ctx context.Context, ev *model.OneOffEvent) error {
	webhookConf, err := json.Marshal(ev.WebhookConf)
	if err != nil {
		return fmt.Errorf("marshal webhook conf: %w", err)
	}
	retryConf, err := json.Marshal(ev.RetryConf)
	if err != nil {
		return fmt.Errorf("marshal retry conf: %w", err)
	}
	headerConf, err := json.Marshal(ev.HeaderConf)
	if err != nil {
		return fmt.Errorf("marshal header conf: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO hdb_scheduled_events
		     (id, webhook_conf, scheduled_time, payload, retry_conf, header_conf, comment)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, webhookConf, ev.ScheduledTime, []byte(ev.Payload), retryConf, headerConf, ev.Comment,
	)
	if err != nil {
		return fmt.Errorf("insert one-off event: %w", err)
	}
	return nil
}

// GetOneOffEvent fetches one event by id.
func (s *EventStore) GetOneOffEvent(ctx context.Context, id string) (*model.OneOffEvent, error) {
	row := s.db.QueryRow(ctx,
		`SELECT id, webhook_conf, scheduled_time, next_retry_at, payload,
		        retry_conf, header_conf, comment, tries, created_at, status
		 FROM hdb_scheduled_events WHERE id = $1`, id,
	)

	var ev model.OneOffEvent
	var webhookConf, retryConf, headerConf []byte
	var payload []byte
	err := row.Scan(&ev.ID, &webhookConf, &ev.ScheduledTime, &ev.NextRetryAt, &payload,
		&retryConf, &headerConf, &ev.Comment, &ev.Tries, &ev.CreatedAt, &ev.Status)
	if err != nil {
		return nil, fmt.Errorf("get one-off event %s: %w", id, err)
	}
	if err := unmarshalOneOffConfs(&ev, webhookConf, retryConf, headerConf, payload); err != nil {
		return nil, err
	}
	return &ev, nil
}

// CancelOneOffEvent marks a still-scheduled event dead so it is never
// delivered. Returns false when the event was already claimed or finished.
func (s *EventStore) CancelOneOffEvent(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE hdb_scheduled_events SET status = 'dead'
		 WHERE id = $1 AND status = 'scheduled'`, id,
	)
	if err != nil {
		return false, fmt.Errorf("cancel one-off event %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListInvocations returns the invocation records for an event, newest first.
func (s *EventStore) ListInvocations(ctx context.Context, eventID string, class model.EventClass) ([]model.Invocation, error) {
	rows, err := s.db.Query(ctx,
		fmt.Sprintf(`SELECT event_id, status, request, response
		 FROM %s WHERE event_id = $1 ORDER BY created_at DESC`, invocationLogsTable(class)),
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list invocations for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var invocations []model.Invocation
	for rows.Next() {
		var inv model.Invocation
		var request, response []byte
		if err := rows.Scan(&inv.EventID, &inv.Status, &request, &response); err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		inv.Request = json.RawMessage(request)
		inv.Response = json.RawMessage(response)
		invocations = append(invocations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}
	return invocations, nil
}

func scanOneOffEvent(rows pgx.Rows) (model.OneOffEvent, error) {
	var ev model.OneOffEvent
	var webhookConf, retryConf, headerConf []byte
	var payload []byte
	err := rows.Scan(&ev.ID, &webhookConf, &ev.ScheduledTime, &ev.NextRetryAt, &payload,
		&retryConf, &headerConf, &ev.Comment, &ev.Tries, &ev.CreatedAt)
	if err != nil {
		return ev, fmt.Errorf("scan one-off event: %w", err)
	}
	if err := unmarshalOneOffConfs(&ev, webhookConf, retryConf, headerConf, payload); err != nil {
		return ev, err
	}
	return ev, nil
}

func unmarshalOneOffConfs(ev *model.OneOffEvent, webhookConf, retryConf, headerConf, payload []byte) error {
	if err := json.Unmarshal(webhookConf, &ev.WebhookConf); err != nil {
		return fmt.Errorf("unmarshal webhook conf of event %s: %w", ev.ID, err)
	}
	if err := json.Unmarshal(retryConf, &ev.RetryConf); err != nil {
		return fmt.Errorf("unmarshal retry conf of event %s: %w", ev.ID, err)
	}
	if len(headerConf) > 0 {
		if err := json.Unmarshal(headerConf, &ev.HeaderConf); err != nil {
			return fmt.Errorf("unmarshal header conf of event %s: %w", ev.ID, err)
		}
	}
	if len(payload) > 0 {
		ev.Payload = json.RawMessage(payload)
	}
	return nil
}
