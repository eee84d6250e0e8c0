package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gogpu/molview/material"
)

// Transform places a node in world space: translate, rotate, then scale
// applied to the unit geometry.
type Transform struct {
	Position r3.Vec
	Rotation r3.Rotation
	Scale    r3.Vec
}

// IdentityTransform returns a transform that leaves geometry unchanged.
func IdentityTransform() Transform {
	return Transform{
		Rotation: r3.NewRotation(0, r3.Vec{X: 1}),
		Scale:    r3.Vec{X: 1, Y: 1, Z: 1},
	}
}

// rotationFromY returns the rotation taking the +Y axis onto dir. Used to
// orient unit cylinders along bond vectors.
func rotationFromY(dir r3.Vec) r3.Rotation {
	d := r3.Unit(dir)
	y := r3.Vec{Y: 1}
	c := r3.Dot(y, d)
	switch {
	case c > 1-1e-9:
		return r3.NewRotation(0, r3.Vec{X: 1})
	case c < -1+1e-9:
		// Antiparallel: any axis perpendicular to Y works.
		return r3.NewRotation(math.Pi, r3.Vec{X: 1})
	default:
		return r3.NewRotation(math.Acos(c), r3.Cross(y, d))
	}
}

// Node is anything that can live in the scene tree.
type Node interface {
	// Dispose releases held resources. Must be idempotent.
	Dispose()
}

// Mesh pairs a geometry with a material at a transform. When Instances is
// non-empty the mesh draws one copy per instance transform and its own
// Transform is ignored; this is the instanced path for large structures.
type Mesh struct {
	Name      string
	Geometry  *Geometry
	Material  *material.Material
	Transform Transform
	Instances []Transform
	Visible   bool

	disposed bool
}

// NewMesh creates a visible mesh at the identity transform.
func NewMesh(name string, g *Geometry, m *material.Material) *Mesh {
	return &Mesh{Name: name, Geometry: g, Material: m, Transform: IdentityTransform(), Visible: true}
}

// InstanceCount returns the number of drawn copies.
func (m *Mesh) InstanceCount() int {
	if len(m.Instances) > 0 {
		return len(m.Instances)
	}
	return 1
}

// Dispose detaches the mesh from its geometry and material. Shared
// geometries are owned by the group that created them and are disposed
// there, not here.
func (m *Mesh) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true
	m.Geometry = nil
	m.Material = nil
	m.Instances = nil
}

// Group is an ordered collection of child nodes. Builders return one
// group per representation; the viewer swaps whole groups atomically.
type Group struct {
	Name      string
	Transform Transform

	children []Node
	// owned geometries are disposed with the group.
	owned    []*Geometry
	disposed bool
}

// NewGroup creates an empty group at the identity transform.
func NewGroup(name string) *Group {
	return &Group{Name: name, Transform: IdentityTransform()}
}

// Add appends a child node.
func (g *Group) Add(n Node) {
	g.children = append(g.children, n)
}

// Children returns the child nodes in draw order.
func (g *Group) Children() []Node { return g.children }

// own registers a geometry for disposal with the group.
func (g *Group) own(geo *Geometry) *Geometry {
	g.owned = append(g.owned, geo)
	return geo
}

// Walk visits every node in the subtree, the group itself included.
func (g *Group) Walk(fn func(Node)) {
	fn(g)
	for _, c := range g.children {
		if sub, ok := c.(*Group); ok {
			sub.Walk(fn)
			continue
		}
		fn(c)
	}
}

// Meshes returns every mesh in the subtree.
func (g *Group) Meshes() []*Mesh {
	var out []*Mesh
	g.Walk(func(n Node) {
		if m, ok := n.(*Mesh); ok {
			out = append(out, m)
		}
	})
	return out
}

// Dispose releases the subtree and its owned geometries. Safe to call
// repeatedly.
func (g *Group) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	for _, c := range g.children {
		c.Dispose()
	}
	g.children = nil
	for _, geo := range g.owned {
		geo.Dispose()
	}
	g.owned = nil
}
