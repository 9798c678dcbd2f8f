package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/triggerd/internal/model"
)

func TestRegistry_InsertRemoveSnapshot(t *testing.T) {
	r := NewRegistry()

	r.InsertMany(model.ClassCron, []string{"a", "b", "c"})
	r.InsertMany(model.ClassOneOff, []string{"x"})

	assert.ElementsMatch(t, []string{"a", "b", "c"}, r.Snapshot(model.ClassCron))
	assert.ElementsMatch(t, []string{"x"}, r.Snapshot(model.ClassOneOff))

	r.Remove(model.ClassCron, "b")
	assert.ElementsMatch(t, []string{"a", "c"}, r.Snapshot(model.ClassCron))

	// Removing an unknown id is a no-op.
	r.Remove(model.ClassCron, "nope")
	assert.Len(t, r.Snapshot(model.ClassCron), 2)

	// Classes are disjoint.
	r.Remove(model.ClassOneOff, "a")
	assert.ElementsMatch(t, []string{"a", "c"}, r.Snapshot(model.ClassCron))
}

func TestRegistry_ConcurrentMutation(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("ev-%d-%d", g, i)
				r.InsertMany(model.ClassCron, []string{id})
				r.Snapshot(model.ClassCron)
				if i%2 == 0 {
					r.Remove(model.ClassCron, id)
				}
			}
		}(g)
	}
	wg.Wait()

	// Each goroutine leaves its odd-numbered ids behind.
	require.Len(t, r.Snapshot(model.ClassCron), 8*50)
}
