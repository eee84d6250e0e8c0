package material

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/molview/internal/logging"
	"github.com/gogpu/molview/render"
)

// ErrSuspended is returned by Get while the GPU context is lost. Callers
// must not create or touch GPU resources until the restore signal arrives.
var ErrSuspended = errors.New("material: surface lost, material creation suspended")

// Stats holds cache counters for monitoring.
type Stats struct {
	// Len is the number of live materials.
	Len int
	// Hits and Misses count Get outcomes.
	Hits, Misses uint64
	// Invalidations counts whole-cache clears from context losses.
	Invalidations uint64
}

// Cache memoizes materials by (shading, params) and tags every material
// with the GPU context epoch it was created under.
//
// Cache implements render.Observer. On SurfaceLost the cache clears
// wholesale rather than pruning selectively; on SurfaceRestored it adopts
// the new epoch and repopulates lazily as geometry is rebuilt.
//
// Cache is safe for concurrent use, though in practice all access happens
// on the single render goroutine; the locking exists so loss/restore
// signals delivered from host event callbacks stay safe.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*Material
	epoch     uint64
	suspended bool
	device    hal.Device

	effectStrength float64

	hits          atomic.Uint64
	misses        atomic.Uint64
	invalidations atomic.Uint64
}

// NewCache creates an empty cache bound to the given starting epoch
// (normally render.Manager.Epoch right after surface creation).
func NewCache(epoch uint64) *Cache {
	return &Cache{
		entries:        make(map[Key]*Material),
		epoch:          epoch,
		effectStrength: 1,
	}
}

// SetDevice supplies the HAL device used for shader module creation.
// Without a device, materials still compile SPIR-V but keep no module
// (the software fallback path).
func (c *Cache) SetDevice(device hal.Device) {
	c.mu.Lock()
	c.device = device
	c.mu.Unlock()
}

// Get returns the memoized material for a shading model and parameter set,
// creating it on first use. The returned material carries the current
// epoch and the cache-wide effect strength.
//
// Get fails with ErrSuspended between a context loss and its restore.
func (c *Cache) Get(shading Shading, params Params) (*Material, error) {
	key := Key{Shading: shading, Params: params}

	c.mu.Lock()
	if c.suspended {
		c.mu.Unlock()
		return nil, ErrSuspended
	}
	if m, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.hits.Add(1)
		return m, nil
	}
	m := &Material{
		key:            key,
		epoch:          c.epoch,
		effectStrength: c.effectStrength,
	}
	c.entries[key] = m
	c.mu.Unlock()

	c.misses.Add(1)
	return m, nil
}

// SetEffectStrength updates the effect strength uniform on every live
// material in place, and on materials created later. The value is clamped
// to [0,1]. This never changes cache keys and never rebuilds geometry.
func (c *Cache) SetEffectStrength(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	c.mu.Lock()
	c.effectStrength = v
	materials := make([]*Material, 0, len(c.entries))
	for _, m := range c.entries {
		materials = append(materials, m)
	}
	c.mu.Unlock()

	for _, m := range materials {
		m.setEffectStrength(v)
	}
}

// EffectStrength returns the cache-wide effect strength.
func (c *Cache) EffectStrength() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectStrength
}

// Epoch returns the epoch new materials are tagged with.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Len returns the number of live materials.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether a key is cached, without creating it.
func (c *Cache) Contains(shading Shading, params Params) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[Key{Shading: shading, Params: params}]
	return ok
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	n := len(c.entries)
	c.mu.Unlock()
	return Stats{
		Len:           n,
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Invalidations: c.invalidations.Load(),
	}
}

// InvalidateAll destroys every material and empties the cache. This is the
// single authoritative invalidation entry point; the surface manager's
// loss signal funnels here.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	old := c.entries
	c.entries = make(map[Key]*Material)
	c.mu.Unlock()

	for _, m := range old {
		m.destroy()
	}
	if len(old) > 0 {
		c.invalidations.Add(1)
	}
}

// SurfaceLost implements render.Observer: the whole cache is cleared and
// material creation suspends until restore.
func (c *Cache) SurfaceLost() {
	c.mu.Lock()
	c.suspended = true
	c.device = nil
	c.mu.Unlock()

	c.InvalidateAll()
	logging.Logger().Debug("material: cache invalidated after context loss")
}

// SurfaceRestored implements render.Observer: the cache adopts the new
// epoch and refills lazily as geometry is rebuilt.
func (c *Cache) SurfaceRestored(epoch uint64) {
	c.mu.Lock()
	c.suspended = false
	c.epoch = epoch
	c.mu.Unlock()

	logging.Logger().Debug("material: cache reopened", "epoch", epoch)
}

// Ensure Cache implements render.Observer.
var _ render.Observer = (*Cache)(nil)
