// Package sqlrt executes sql(...) calls against the shared database handle,
// caching prepared statements by their template text (spec.md §4.4).
package sqlrt

import (
	"context"
	"database/sql"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache is a prepared-statement cache shared across request-handling
// goroutines. Lookup-or-prepare is collapsed through a singleflight.Group
// so concurrent first uses of the same template prepare it exactly once,
// the way the teacher collapses concurrent map-backed lookups in its
// put-path (ministore/ops/put.go) but specialized for *sql.Stmt caching.
type Cache struct {
	db *sql.DB

	mu    sync.RWMutex
	stmts map[string]*sql.Stmt

	group singleflight.Group
}

func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db, stmts: make(map[string]*sql.Stmt)}
}

func (c *Cache) get(template string) (*sql.Stmt, error) {
	c.mu.RLock()
	if stmt, ok := c.stmts[template]; ok {
		c.mu.RUnlock()
		return stmt, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(template, func() (any, error) {
		c.mu.RLock()
		if stmt, ok := c.stmts[template]; ok {
			c.mu.RUnlock()
			return stmt, nil
		}
		c.mu.RUnlock()

		stmt, err := c.db.PrepareContext(context.Background(), template)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.stmts[template] = stmt
		c.mu.Unlock()
		return stmt, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.Stmt), nil
}

// Close releases every prepared statement. Called once at shutdown.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for _, stmt := range c.stmts {
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
