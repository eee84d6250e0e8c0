package scene

import (
	"context"
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gogpu/molview/internal/sched"
	"github.com/gogpu/molview/material"
	"github.com/gogpu/molview/pdb"
	"github.com/gogpu/molview/render"
)

// SpacefillBuilder draws every atom as a sphere at its van der Waals
// radius. Bonds are not drawn; at full radius the spheres interpenetrate
// and cylinders would be invisible anyway.
type SpacefillBuilder struct {
	mats *material.Cache
	caps render.DeviceCapabilities
	cfg  Config
}

// Build constructs the subtree with the same chunking, instancing and
// degradation rules as ball-and-stick.
func (b *SpacefillBuilder) Build(ctx context.Context, mol *pdb.Molecule) (*Group, error) {
	atoms := selectAtoms(mol, b.cfg)
	epoch := b.mats.Epoch()

	group := NewGroup("spacefill")
	sphere := group.own(UnitSphere(b.cfg.SphereDetail, b.cfg.SphereDetail, epoch))

	instanced := b.caps.SupportsInstancing && len(atoms) >= b.cfg.InstanceThreshold
	// Instancing shares one transform list per (element, radius), keyed by
	// color since radius follows element.
	instances := make(map[color.RGBA][]Transform)

	gen := chunkSteps(len(atoms), b.cfg.ChunkSize, func(lo, hi int) error {
		for _, i := range atoms[lo:hi] {
			a := &mol.Atoms[i]
			r := a.VdwRadius
			if r <= 0 {
				r = 1
			}
			tr := Transform{
				Position: a.Pos,
				Rotation: r3.NewRotation(0, r3.Vec{X: 1}),
				Scale:    r3.Vec{X: r, Y: r, Z: r},
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

	q := sched.New(chain(gen, singleStep(func() error {
		if !instanced {
			return nil
		}
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
	})))
	if b.cfg.Yield != nil {
		q.SetYield(b.cfg.Yield)
	}
	return runChunked(ctx, q, mol, atoms, epoch, group)
}

var _ Builder = (*SpacefillBuilder)(nil)
