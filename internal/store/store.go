// Package store is the event store gateway: every SQL statement the engine
// issues against the event database lives here. Each operation except
// UnlockAllLocked is a single statement, so each such call is atomic at
// read-committed without client-side transaction management; the paired
// writes (invocation log + tries bump) use a CTE for the same reason.
// UnlockAllLocked issues one statement per table and is not atomic across
// the two tables.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/triggerd/internal/model"
)

// HydrationThreshold is the number of future scheduled occurrences every
// cron trigger is kept topped up to. A trigger with fewer is deprived and
// gets rehydrated by the generator.
const HydrationThreshold = 100

// DB defines the database operations used by the event store.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventStore mediates all reads and writes of scheduled events and their
// invocation logs.
type EventStore struct {
	db DB
}

func NewEventStore(db DB) *EventStore {
	return &EventStore{db: db}
}

func eventsTable(class model.EventClass) string {
	if class == model.ClassCron {
		return "hdb_cron_events"
	}
	return "hdb_scheduled_events"
}

func invocationLogsTable(class model.EventClass) string {
	if class == model.ClassCron {
		return "hdb_cron_event_invocation_logs"
	}
	return "hdb_scheduled_event_invocation_logs"
}
