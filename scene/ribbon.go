package scene

import (
	"context"
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gogpu/molview/internal/sched"
	"github.com/gogpu/molview/material"
	"github.com/gogpu/molview/pdb"
)

const (
	// ribbonCoilRadius is the tube radius for unstructured backbone.
	ribbonCoilRadius = 0.3
	// ribbonAccentRadius thickens helix and sheet segments.
	ribbonAccentRadius = 0.6
	// ribbonMaxGap rejects trace segments longer than any real
	// alpha-carbon step; chain breaks should not be bridged.
	ribbonMaxGap = 4.5
	// ribbonSubdiv is how many tube segments each alpha-carbon span is
	// smoothed into.
	ribbonSubdiv = 4
)

// Classic secondary-structure palette.
var (
	helixColor = color.RGBA{R: 0xcc, G: 0x33, B: 0x99, A: 0xff}
	sheetColor = color.RGBA{R: 0xe6, G: 0xc2, B: 0x29, A: 0xff}
	coilColor  = color.RGBA{R: 0xa0, G: 0xa0, B: 0xa0, A: 0xff}
)

// RibbonBuilder draws the protein backbone as a tube following a
// Catmull-Rom spline through consecutive alpha carbons, thickened and
// recolored over helix and sheet segments. Non-amino residues contribute
// nothing; a structure with no backbone yields an empty group, not an
// error.
type RibbonBuilder struct {
	mats *material.Cache
	cfg  Config
}

// traceSegment is one drawable backbone span between two alpha carbons.
type traceSegment struct {
	from, to  r3.Vec
	structure pdb.SecondaryStructure
}

// Build constructs the subtree. Segments are collected synchronously
// (cheap, pure geometry) and meshed in chunks.
func (b *RibbonBuilder) Build(ctx context.Context, mol *pdb.Molecule) (*Group, error) {
	segments := backboneTrace(mol)
	epoch := b.mats.Epoch()

	group := NewGroup("ribbon")
	cylinder := group.own(UnitCylinder(b.cfg.CylinderDetail, epoch))
	sphere := group.own(UnitSphere(b.cfg.SphereDetail/2, b.cfg.SphereDetail/2, epoch))

	gen := chunkSteps(len(segments), b.cfg.ChunkSize, func(lo, hi int) error {
		for _, seg := range segments[lo:hi] {
			if err := b.addSegment(group, cylinder, sphere, seg); err != nil {
				return err
			}
		}
		return nil
	})

	q := sched.New(gen)
	if b.cfg.Yield != nil {
		q.SetYield(b.cfg.Yield)
	}
	return runChunked(ctx, q, mol, nil, epoch, group)
}

// addSegment draws one tube segment plus a joint sphere at its far end so
// direction changes stay smooth.
func (b *RibbonBuilder) addSegment(group *Group, cylinder, sphere *Geometry, seg traceSegment) error {
	radius, tint := ribbonCoilRadius, coilColor
	switch seg.structure {
	case pdb.Helix:
		radius, tint = ribbonAccentRadius, helixColor
	case pdb.Sheet:
		radius, tint = ribbonAccentRadius, sheetColor
	}
	mat, err := elementMaterial(b.mats, b.cfg.Shading, tint)
	if err != nil {
		return err
	}

	dir := r3.Sub(seg.to, seg.from)
	length := r3.Norm(dir)
	tube := NewMesh("trace", cylinder, mat)
	tube.Transform = Transform{
		Position: r3.Add(seg.from, r3.Scale(0.5, dir)),
		Rotation: rotationFromY(dir),
		Scale:    r3.Vec{X: radius, Y: length, Z: radius},
	}
	group.Add(tube)

	joint := NewMesh("joint", sphere, mat)
	joint.Transform = Transform{
		Position: seg.to,
		Rotation: r3.NewRotation(0, r3.Vec{X: 1}),
		Scale:    r3.Vec{X: radius, Y: radius, Z: radius},
	}
	group.Add(joint)
	return nil
}

// traceRun is an unbroken stretch of alpha carbons within one chain.
type traceRun struct {
	points     []r3.Vec
	structures []pdb.SecondaryStructure
}

// backboneTrace walks each chain in residue order, splits the alpha-carbon
// trace at chain breaks, and smooths each run through a Catmull-Rom spline.
// A span belongs to the residue it leaves.
func backboneTrace(mol *pdb.Molecule) []traceSegment {
	var segments []traceSegment
	for _, run := range traceRuns(mol) {
		segments = append(segments, smoothRun(run)...)
	}
	return segments
}

func traceRuns(mol *pdb.Molecule) []traceRun {
	var runs []traceRun
	for _, chain := range mol.Chains() {
		var run traceRun
		flush := func() {
			if len(run.points) >= 2 {
				runs = append(runs, run)
			}
			run = traceRun{}
		}
		for _, key := range chain.Residues {
			res := mol.Residue(key)
			if res == nil {
				continue
			}
			ca := alphaCarbon(mol, res)
			if ca == nil || !ca.IsAmino {
				flush()
				continue
			}
			if n := len(run.points); n > 0 {
				d := r3.Norm(r3.Sub(ca.Pos, run.points[n-1]))
				if d == 0 || d > ribbonMaxGap {
					flush()
				}
			}
			run.points = append(run.points, ca.Pos)
			run.structures = append(run.structures, res.Structure)
		}
		flush()
	}
	return runs
}

// smoothRun emits ribbonSubdiv tube segments per alpha-carbon span,
// sampled from the Catmull-Rom spline through the run. Endpoints are
// duplicated so the spline passes through the terminal carbons.
func smoothRun(run traceRun) []traceSegment {
	segments := make([]traceSegment, 0, (len(run.points)-1)*ribbonSubdiv)
	at := func(i int) r3.Vec {
		if i < 0 {
			i = 0
		}
		if i >= len(run.points) {
			i = len(run.points) - 1
		}
		return run.points[i]
	}
	for i := 0; i < len(run.points)-1; i++ {
		p0, p1, p2, p3 := at(i-1), at(i), at(i+1), at(i+2)
		prev := p1
		for s := 1; s <= ribbonSubdiv; s++ {
			pt := catmullRom(p0, p1, p2, p3, float64(s)/ribbonSubdiv)
			if prev != pt {
				segments = append(segments, traceSegment{
					from:      prev,
					to:        pt,
					structure: run.structures[i],
				})
			}
			prev = pt
		}
	}
	return segments
}

// catmullRom evaluates the uniform Catmull-Rom spline for the middle span
// p1..p2 at parameter t in [0,1].
func catmullRom(p0, p1, p2, p3 r3.Vec, t float64) r3.Vec {
	t2 := t * t
	t3 := t2 * t
	a := r3.Scale(2, p1)
	b := r3.Scale(t, r3.Sub(p2, p0))
	c := r3.Scale(t2, r3.Add(
		r3.Sub(r3.Scale(2, p0), r3.Scale(5, p1)),
		r3.Sub(r3.Scale(4, p2), p3)))
	d := r3.Scale(t3, r3.Add(
		r3.Sub(r3.Scale(3, p1), p0),
		r3.Sub(p3, r3.Scale(3, p2))))
	return r3.Scale(0.5, r3.Add(r3.Add(a, b), r3.Add(c, d)))
}

// alphaCarbon returns the residue's CA atom, or nil.
func alphaCarbon(mol *pdb.Molecule, res *pdb.Residue) *pdb.Atom {
	for _, i := range res.Atoms {
		if mol.Atoms[i].Name == "CA" {
			return &mol.Atoms[i]
		}
	}
	return nil
}

var (
	_ Builder = (*BallStickBuilder)(nil)
	_ Builder = (*RibbonBuilder)(nil)
)
