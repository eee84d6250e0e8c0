package scene

import (
	"context"
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gogpu/molview/internal/logging"
	"github.com/gogpu/molview/internal/sched"
	"github.com/gogpu/molview/material"
	"github.com/gogpu/molview/pdb"
	"github.com/gogpu/molview/render"
)

const (
	// ballStickAtomRadius is the sphere radius in angstroms. Ball-and-stick
	// deliberately shrinks atoms well below their van der Waals radii so
	// bonds stay visible.
	ballStickAtomRadius = 0.4
	// ballStickBondRadius is the cylinder radius in angstroms.
	ballStickBondRadius = 0.15
)

// BallStickBuilder builds the ball-and-stick representation: one small
// sphere per atom, two half cylinders per bond colored by their endpoint
// elements.
//
// Construction is chunked; each chunk of atoms or bonds runs in its own
// scheduling turn. On devices that support instancing, atom spheres of
// the same element collapse into instanced meshes once the structure is
// large enough.
type BallStickBuilder struct {
	mats *material.Cache
	caps render.DeviceCapabilities
	cfg  Config
}

// Build constructs the subtree. A cancelled context aborts between
// chunks; a material or device failure degrades to a point cloud rather
// than returning an empty scene.
func (b *BallStickBuilder) Build(ctx context.Context, mol *pdb.Molecule) (*Group, error) {
	atoms := selectAtoms(mol, b.cfg)
	bonds := selectBonds(mol, atoms, b.cfg.MaxBonds)
	epoch := b.mats.Epoch()

	group := NewGroup("ballstick")
	sphere := group.own(UnitSphere(b.cfg.SphereDetail, b.cfg.SphereDetail, epoch))
	cylinder := group.own(UnitCylinder(b.cfg.CylinderDetail, epoch))

	instanced := b.caps.SupportsInstancing && len(atoms) >= b.cfg.InstanceThreshold
	logging.Logger().Debug("scene: ballstick build",
		"atoms", len(atoms), "bonds", len(bonds), "instanced", instanced)

	// Instance lists accumulate across chunks and become meshes at the end.
	instances := make(map[color.RGBA][]Transform)

	atomGen := chunkSteps(len(atoms), b.cfg.ChunkSize, func(lo, hi int) error {
		for _, i := range atoms[lo:hi] {
			a := &mol.Atoms[i]
			tr := Transform{
				Position: a.Pos,
				Rotation: r3.NewRotation(0, r3.Vec{X: 1}),
				Scale:    r3.Vec{X: ballStickAtomRadius, Y: ballStickAtomRadius, Z: ballStickAtomRadius},
			}
			if instanced {
				instances[a.Color] = append(instances[a.Color], tr)
				continue
			}
			mat, err := elementMaterial(b.mats, b.cfg.Shading, a.Color)
			if err != nil {
				return err
			}
			m := NewMesh("atom", sphere, mat)
			m.Transform = tr
			group.Add(m)
		}
		return nil
	})

	bondGen := chunkSteps(len(bonds), b.cfg.ChunkSize, func(lo, hi int) error {
		for _, bd := range bonds[lo:hi] {
			if err := b.addBond(group, cylinder, mol, bd); err != nil {
				return err
			}
		}
		return nil
	})

	q := sched.New(chain(atomGen, bondGen, singleStep(func() error {
		if !instanced {
			return nil
		}
		return b.flushInstances(group, sphere, instances)
	})))
	if b.cfg.Yield != nil {
		q.SetYield(b.cfg.Yield)
	}
	return runChunked(ctx, q, mol, atoms, epoch, group)
}

// addBond appends two half cylinders, one per endpoint element color.
func (b *BallStickBuilder) addBond(group *Group, cylinder *Geometry, mol *pdb.Molecule, bd pdb.Bond) error {
	ai, aj := &mol.Atoms[bd.I], &mol.Atoms[bd.J]
	dir := r3.Sub(aj.Pos, ai.Pos)
	length := r3.Norm(dir)
	rot := rotationFromY(dir)
	half := length / 2

	for k, a := range [2]*pdb.Atom{ai, aj} {
		mat, err := elementMaterial(b.mats, b.cfg.Shading, a.Color)
		if err != nil {
			return err
		}
		// Each half sits centered on the quarter point of its side.
		t := 0.25 + 0.5*float64(k)
		mid := r3.Add(ai.Pos, r3.Scale(t, dir))
		m := NewMesh("bond", cylinder, mat)
		m.Transform = Transform{
			Position: mid,
			Rotation: rot,
			Scale:    r3.Vec{X: ballStickBondRadius, Y: half, Z: ballStickBondRadius},
		}
		group.Add(m)
	}
	return nil
}

// flushInstances emits one instanced mesh per element color, splitting
// lists that exceed the device instance limit. Zero means unlimited.
func (b *BallStickBuilder) flushInstances(group *Group, sphere *Geometry, instances map[color.RGBA][]Transform) error {
	for c, trs := range instances {
		mat, err := elementMaterial(b.mats, b.cfg.Shading, c)
		if err != nil {
			return err
		}
		limit := b.caps.MaxInstanceCount
		if limit <= 0 {
			limit = len(trs)
		}
		for len(trs) > 0 {
			n := len(trs)
			if n > limit {
				n = limit
			}
			m := NewMesh("atoms", sphere, mat)
			m.Instances = trs[:n]
			group.Add(m)
			trs = trs[n:]
		}
	}
	return nil
}

// chain concatenates step generators.
func chain(gens ...func() (sched.Step, bool)) func() (sched.Step, bool) {
	i := 0
	return func() (sched.Step, bool) {
		for i < len(gens) {
			if s, ok := gens[i](); ok {
				return s, true
			}
			i++
		}
		return nil, false
	}
}

// singleStep wraps one function as a one-step generator.
func singleStep(fn sched.Step) func() (sched.Step, bool) {
	done := false
	return func() (sched.Step, bool) {
		if done {
			return nil, false
		}
		done = true
		return fn, true
	}
}
