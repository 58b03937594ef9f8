package shader

import (
	"fmt"

	"github.com/dgraph-io/ristretto"
)

// Cache memoizes compiled or checked programs by source text. Many buckets
// share the same pragma tables, so validation runs once per distinct
// program.
//
// Writes are admitted asynchronously; a Get right after a Set may miss.
type Cache struct {
	c *ristretto.Cache
}

// NewCache returns a cache bounded to maxCost bytes of compiled output.
func NewCache(maxCost int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("shader: create cache: %w", err)
	}
	return &Cache{c: c}, nil
}

func (c *Cache) get(src string) ([]byte, bool) {
	v, ok := c.c.Get(src)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (c *Cache) set(src string, out []byte) {
	c.c.Set(src, out, int64(len(out))+1)
}

// Wait blocks until pending writes are applied.
func (c *Cache) Wait() {
	c.c.Wait()
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
