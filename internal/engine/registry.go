package engine

import (
	"sync"

	"github.com/edvin/triggerd/internal/model"
)

// Registry tracks the event ids this replica currently holds a lock on, per
// event class. The processor registers ids before delivering and removes them
// once delivery records an outcome (delivered, retry scheduled, error or
// dead); the shutdown hook snapshots the remainder to hand their locks back.
type Registry struct {
	mu   sync.Mutex
	sets map[model.EventClass]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sets: map[model.EventClass]map[string]struct{}{
			model.ClassCron:   {},
			model.ClassOneOff: {},
		},
	}
}

// InsertMany registers ids as owned by this replica.
func (r *Registry) InsertMany(class model.EventClass, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.sets[class][id] = struct{}{}
	}
}

// Remove releases ownership of one id.
func (r *Registry) Remove(class model.EventClass, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sets[class], id)
}

// Snapshot returns the currently owned ids of one class.
func (r *Registry) Snapshot(class model.EventClass) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sets[class]))
	for id := range r.sets[class] {
		ids = append(ids, id)
	}
	return ids
}
