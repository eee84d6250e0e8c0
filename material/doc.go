// Package material maps visual-style and material parameters to GPU
// material objects, memoized in an epoch-tagged cache.
//
// Materials hold the compiled shader state for one (shading model, color,
// transparency, opacity, cull side) combination. The cache subscribes to
// the render surface manager: on context loss the entire cache is
// invalidated wholesale (a stale handle into destroyed GPU state is a hard
// crash risk, so correctness wins over efficiency), and on restore it
// adopts the new epoch and refills lazily as geometry is rebuilt.
//
// Effect strength is deliberately not part of the cache key: tuning it is
// an in-place uniform update on live materials, never a rebuild.
package material
