package scene

import (
	"math"
)

// Geometry is an indexed triangle mesh in host memory. Positions and
// normals are packed xyz triples. A geometry with no indices and no
// normals is a point cloud.
//
// Geometries are immutable after construction and shared freely between
// meshes; a ball-and-stick subtree references one unit sphere and one
// unit cylinder regardless of atom count.
type Geometry struct {
	Positions []float32
	Normals   []float32
	Indices   []uint32

	epoch    uint64
	disposed bool
}

// Epoch returns the GPU context epoch the geometry was built under.
func (g *Geometry) Epoch() uint64 { return g.epoch }

// Valid reports whether the geometry belongs to the given epoch.
// Geometries from older epochs reference destroyed GPU state and must be
// rebuilt, never patched.
func (g *Geometry) Valid(epoch uint64) bool {
	return !g.disposed && g.epoch == epoch
}

// VertexCount returns the number of vertices.
func (g *Geometry) VertexCount() int { return len(g.Positions) / 3 }

// Dispose releases the vertex data. Safe to call repeatedly.
func (g *Geometry) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	g.Positions = nil
	g.Normals = nil
	g.Indices = nil
}

// UnitSphere tessellates a unit-radius UV sphere with the given ring and
// sector counts. Minimums are clamped so degenerate detail settings still
// produce a closed surface.
func UnitSphere(rings, sectors int, epoch uint64) *Geometry {
	if rings < 3 {
		rings = 3
	}
	if sectors < 3 {
		sectors = 3
	}

	g := &Geometry{epoch: epoch}
	for r := 0; r <= rings; r++ {
		phi := math.Pi * float64(r) / float64(rings)
		sinPhi, cosPhi := math.Sin(phi), math.Cos(phi)
		for s := 0; s <= sectors; s++ {
			theta := 2 * math.Pi * float64(s) / float64(sectors)
			x := sinPhi * math.Cos(theta)
			y := cosPhi
			z := sinPhi * math.Sin(theta)
			g.Positions = append(g.Positions, float32(x), float32(y), float32(z))
			// Unit sphere: the normal is the position.
			g.Normals = append(g.Normals, float32(x), float32(y), float32(z))
		}
	}
	stride := uint32(sectors + 1)
	for r := 0; r < rings; r++ {
		for s := 0; s < sectors; s++ {
			a := uint32(r)*stride + uint32(s)
			b := a + stride
			g.Indices = append(g.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return g
}

// UnitCylinder tessellates a closed cylinder of radius 1 and height 1,
// centered at the origin with its axis along +Y. Meshes scale it to
// (radius, length, radius) and rotate Y onto the bond direction.
func UnitCylinder(sectors int, epoch uint64) *Geometry {
	if sectors < 3 {
		sectors = 3
	}

	g := &Geometry{epoch: epoch}
	// Side wall.
	for s := 0; s <= sectors; s++ {
		theta := 2 * math.Pi * float64(s) / float64(sectors)
		x, z := float32(math.Cos(theta)), float32(math.Sin(theta))
		g.Positions = append(g.Positions, x, -0.5, z, x, 0.5, z)
		g.Normals = append(g.Normals, x, 0, z, x, 0, z)
	}
	for s := 0; s < sectors; s++ {
		a := uint32(s * 2)
		g.Indices = append(g.Indices, a, a+1, a+2, a+2, a+1, a+3)
	}

	// Caps.
	for _, end := range []struct {
		y, ny float32
	}{{-0.5, -1}, {0.5, 1}} {
		center := uint32(len(g.Positions) / 3)
		g.Positions = append(g.Positions, 0, end.y, 0)
		g.Normals = append(g.Normals, 0, end.ny, 0)
		for s := 0; s <= sectors; s++ {
			theta := 2 * math.Pi * float64(s) / float64(sectors)
			g.Positions = append(g.Positions, float32(math.Cos(theta)), end.y, float32(math.Sin(theta)))
			g.Normals = append(g.Normals, 0, end.ny, 0)
		}
		for s := 0; s < sectors; s++ {
			i := center + 1 + uint32(s)
			if end.ny > 0 {
				g.Indices = append(g.Indices, center, i, i+1)
			} else {
				g.Indices = append(g.Indices, center, i+1, i)
			}
		}
	}
	return g
}

// PointCloud builds an unindexed point geometry from packed xyz positions.
func PointCloud(positions []float32, epoch uint64) *Geometry {
	return &Geometry{Positions: positions, epoch: epoch}
}
