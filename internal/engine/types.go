package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/edvin/triggerd/internal/catalog"
	"github.com/edvin/triggerd/internal/model"
)

// EventStore is the slice of the store gateway the engine drives.
// *store.EventStore satisfies this interface.
type EventStore interface {
	FetchDeprivedStats(ctx context.Context, triggerNames []string) ([]model.TriggerStats, error)
	InsertCronSeeds(ctx context.Context, seeds []model.CronEventSeed) error
	LockDueCronEvents(ctx context.Context) ([]model.CronEvent, error)
	LockDueOneOffEvents(ctx context.Context) ([]model.OneOffEvent, error)
	InsertInvocation(ctx context.Context, inv model.Invocation, class model.EventClass) error
	SetStatus(ctx context.Context, id string, status model.EventStatus, class model.EventClass) error
	SetRetry(ctx context.Context, id string, retryAt time.Time, class model.EventClass) error
	UnlockCronEvents(ctx context.Context, ids []string) (int, error)
	UnlockOneOffEvents(ctx context.Context, ids []string) (int, error)
}

// CatalogSource supplies trigger-definition snapshots.
// *catalog.Catalog satisfies this interface.
type CatalogSource interface {
	Snapshot() (map[string]catalog.TriggerDefinition, error)
}

// EventFull is a fully resolved deliverable event: the scheduling row joined
// with its webhook URL, headers, payload and retry policy, ready for one
// delivery attempt.
type EventFull struct {
	ID            string
	Class         model.EventClass
	TriggerName   string // empty for one-off events
	ScheduledTime time.Time
	CreatedAt     time.Time
	Tries         int
	URL           string
	Headers       []model.ResolvedHeader
	Payload       json.RawMessage
	Retry         model.RetryConf
	Comment       *string
}
