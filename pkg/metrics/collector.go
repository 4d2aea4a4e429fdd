package metrics

import (
	"time"

	"github.com/hyperdxio/switchboard/pkg/shard"
	"github.com/hyperdxio/switchboard/pkg/storage"
)

// Collector periodically refreshes the gauges derived from durable
// state. Counters are incremented at their mutation sites; gauges are
// recomputed here so restarts and manual edits converge.
type Collector struct {
	store      storage.Store
	shardCount int
	stopCh     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store storage.Store, shardCount int) *Collector {
	return &Collector{
		store:      store,
		shardCount: shardCount,
		stopCh:     make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ShardCapacity.Set(float64(c.shardCount))

	tokens, err := c.store.ListTokens()
	if err != nil {
		return
	}

	active := 0
	for _, tok := range tokens {
		if tok.Active() {
			active++
		}
	}
	TokensActive.Set(float64(active))
	ShardsOccupied.Set(float64(len(shard.Occupied(tokens))))
}
