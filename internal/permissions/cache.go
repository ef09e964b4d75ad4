package permissions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

// RoleLoader fetches a role from the store on a cache miss.
type RoleLoader func(ctx context.Context, roleID uuid.UUID) (*Grant, error)

// Cache keeps computed role grants. Role writes must call Invalidate.
// A load that overlaps an invalidation is returned but not cached, so a grant
// read before a role update can not outlive it.
type Cache struct {
	lru  *lru.Cache[uuid.UUID, Grant]
	load RoleLoader

	mu  sync.Mutex
	gen uint64
}

func NewCache(size int, load RoleLoader) (*Cache, error) {
	c, err := lru.New[uuid.UUID, Grant](size)
	if err != nil {
		return nil, fmt.Errorf("role cache: %w", err)
	}
	return &Cache{lru: c, load: load}, nil
}

func (c *Cache) Get(ctx context.Context, roleID uuid.UUID) (Grant, error) {
	if g, ok := c.lru.Get(roleID); ok {
		return g, nil
	}
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	g, err := c.load(ctx, roleID)
	if err != nil {
		return Grant{}, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.lru.Add(roleID, *g)
	}
	c.mu.Unlock()
	return *g, nil
}

func (c *Cache) Invalidate(roleID uuid.UUID) {
	c.mu.Lock()
	c.gen++
	c.lru.Remove(roleID)
	c.mu.Unlock()
}

func (c *Cache) Len() int { return c.lru.Len() }
