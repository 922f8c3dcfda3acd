package sim

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrainAllPreservesFIFOOrder(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Command{Kind: BuildBuilding, UserID: "a"})
	q.Enqueue(Command{Kind: StartResearch, UserID: "b"})
	q.Enqueue(Command{Kind: FleetRecall, UserID: "c"})

	drained := q.DrainAll()

	assert.Equal(t, []Kind{BuildBuilding, StartResearch, FleetRecall}, []Kind{
		drained[0].Kind, drained[1].Kind, drained[2].Kind,
	})
	assert.Equal(t, 0, q.Depth())
}

func TestDrainAllIsAtomicAcrossGoroutines(t *testing.T) {
	q := NewQueue()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(Command{Kind: UpdatePlayerActivity})
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, q.Depth())
	drained := q.DrainAll()
	assert.Len(t, drained, 100)
	assert.Equal(t, 0, q.Depth())
}

func TestDrainAllOnEmptyQueueReturnsNil(t *testing.T) {
	q := NewQueue()
	assert.Nil(t, q.DrainAll())
}
