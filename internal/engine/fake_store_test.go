package engine

import (
	"context"
	"sync"
	"time"

	"github.com/edvin/triggerd/internal/catalog"
	"github.com/edvin/triggerd/internal/model"
)

// fakeStore is an in-memory EventStore that records every write.
type fakeStore struct {
	mu sync.Mutex

	stats    []model.TriggerStats
	statsErr error

	dueCron      []model.CronEvent
	dueCronErr   error
	dueOneOff    []model.OneOffEvent
	dueOneOffErr error

	insertInvocationErr error

	seeds       []model.CronEventSeed
	invocations []recordedInvocation
	statuses    []recordedStatus
	retries     []recordedRetry

	unlockedCron   []string
	unlockedOneOff []string
}

type recordedInvocation struct {
	inv   model.Invocation
	class model.EventClass
}

type recordedStatus struct {
	id     string
	status model.EventStatus
	class  model.EventClass
}

type recordedRetry struct {
	id      string
	retryAt time.Time
	class   model.EventClass
}

func (f *fakeStore) FetchDeprivedStats(ctx context.Context, triggerNames []string) ([]model.TriggerStats, error) {
	return f.stats, f.statsErr
}

func (f *fakeStore) InsertCronSeeds(ctx context.Context, seeds []model.CronEventSeed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeds = append(f.seeds, seeds...)
	return nil
}

func (f *fakeStore) LockDueCronEvents(ctx context.Context) ([]model.CronEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.dueCron
	f.dueCron = nil
	return events, f.dueCronErr
}

func (f *fakeStore) LockDueOneOffEvents(ctx context.Context) ([]model.OneOffEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.dueOneOff
	f.dueOneOff = nil
	return events, f.dueOneOffErr
}

func (f *fakeStore) InsertInvocation(ctx context.Context, inv model.Invocation, class model.EventClass) error {
	if f.insertInvocationErr != nil {
		return f.insertInvocationErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invocations = append(f.invocations, recordedInvocation{inv: inv, class: class})
	return nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id string, status model.EventStatus, class model.EventClass) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, recordedStatus{id: id, status: status, class: class})
	return nil
}

func (f *fakeStore) SetRetry(ctx context.Context, id string, retryAt time.Time, class model.EventClass) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries = append(f.retries, recordedRetry{id: id, retryAt: retryAt, class: class})
	return nil
}

func (f *fakeStore) UnlockCronEvents(ctx context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlockedCron = append(f.unlockedCron, ids...)
	return len(ids), nil
}

func (f *fakeStore) UnlockOneOffEvents(ctx context.Context, ids []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unlockedOneOff = append(f.unlockedOneOff, ids...)
	return len(ids), nil
}

// fakeCatalog serves a fixed trigger map.
type fakeCatalog struct {
	triggers map[string]catalog.TriggerDefinition
	err      error
}

func (f *fakeCatalog) Snapshot() (map[string]catalog.TriggerDefinition, error) {
	return f.triggers, f.err
}
