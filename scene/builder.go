package scene

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gogpu/molview/internal/logging"
	"github.com/gogpu/molview/internal/sched"
	"github.com/gogpu/molview/material"
	"github.com/gogpu/molview/pdb"
	"github.com/gogpu/molview/render"
)

// Style selects a molecular representation.
type Style int

const (
	// StyleBallStick draws atoms as small spheres joined by cylinders.
	StyleBallStick Style = iota
	// StyleSpacefill draws atoms as van der Waals spheres.
	StyleSpacefill
	// StyleRibbon draws a backbone trace with secondary-structure accents.
	StyleRibbon
)

func (s Style) String() string {
	switch s {
	case StyleBallStick:
		return "ballstick"
	case StyleSpacefill:
		return "spacefill"
	case StyleRibbon:
		return "ribbon"
	default:
		return fmt.Sprintf("Style(%d)", int(s))
	}
}

const (
	// defaultChunkSize bounds the work done per scheduling turn.
	defaultChunkSize = 500
	// maxBondLength rejects bonds that would draw absurd cylinders, e.g.
	// from CONECT records pairing atoms across the cell.
	maxBondLength = 10.0
	// defaultInstanceThreshold is the atom count above which instanced
	// meshes are preferred when the device supports them.
	defaultInstanceThreshold = 2000
)

// Config tunes scene construction. The zero value is not useful; start
// from DefaultConfig.
type Config struct {
	// ChunkSize is the number of atoms or bonds processed per scheduling
	// turn.
	ChunkSize int
	// MaxAtoms and MaxBonds cap scene complexity independently. Zero means
	// unlimited. Over-budget structures are subsampled by stride, never
	// truncated from the front.
	MaxAtoms int
	MaxBonds int
	// ShowHydrogens includes hydrogen atoms, which typically triple the
	// mesh count for organic structures.
	ShowHydrogens bool
	// Shading selects the material shading model for all meshes.
	Shading material.Shading
	// SphereDetail and CylinderDetail set tessellation density.
	SphereDetail   int
	CylinderDetail int
	// InstanceThreshold is the atom count at which instancing kicks in on
	// capable devices.
	InstanceThreshold int
	// Yield overrides the scheduling point between chunks, mainly for
	// tests.
	Yield sched.Yield
}

// DefaultConfig returns the builder defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:         defaultChunkSize,
		Shading:           material.ShadingLambert,
		SphereDetail:      16,
		CylinderDetail:    12,
		InstanceThreshold: defaultInstanceThreshold,
	}
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.SphereDetail <= 0 {
		c.SphereDetail = 16
	}
	if c.CylinderDetail <= 0 {
		c.CylinderDetail = 12
	}
	if c.InstanceThreshold <= 0 {
		c.InstanceThreshold = defaultInstanceThreshold
	}
	return c
}

// Builder turns a parsed molecule into a scene subtree.
type Builder interface {
	Build(ctx context.Context, mol *pdb.Molecule) (*Group, error)
}

// ForStyle returns the builder for a representation style.
func ForStyle(style Style, mats *material.Cache, caps render.DeviceCapabilities, cfg Config) Builder {
	cfg = cfg.withDefaults()
	switch style {
	case StyleSpacefill:
		return &SpacefillBuilder{mats: mats, caps: caps, cfg: cfg}
	case StyleRibbon:
		return &RibbonBuilder{mats: mats, cfg: cfg}
	default:
		return &BallStickBuilder{mats: mats, caps: caps, cfg: cfg}
	}
}

// selectAtoms applies the hydrogen filter and the atom cap. Over-budget
// structures are subsampled with a uniform stride so the overall shape
// survives. The returned slice holds indices into mol.Atoms.
func selectAtoms(mol *pdb.Molecule, cfg Config) []int {
	kept := make([]int, 0, mol.AtomCount())
	for i := range mol.Atoms {
		if !cfg.ShowHydrogens && mol.Atoms[i].Element == "H" {
			continue
		}
		kept = append(kept, i)
	}
	return subsample(kept, cfg.MaxAtoms)
}

// subsample reduces a slice to at most limit entries by uniform stride.
func subsample(idx []int, limit int) []int {
	if limit <= 0 || len(idx) <= limit {
		return idx
	}
	stride := (len(idx) + limit - 1) / limit
	out := idx[:0]
	for i := 0; i < len(idx); i += stride {
		out = append(out, idx[i])
	}
	return out
}

// selectBonds keeps bonds whose endpoints both survived atom selection
// and whose length is plausible, then applies the bond cap.
func selectBonds(mol *pdb.Molecule, atoms []int, limit int) []pdb.Bond {
	present := make(map[int]bool, len(atoms))
	for _, i := range atoms {
		present[i] = true
	}
	kept := make([]pdb.Bond, 0, len(mol.Bonds))
	dropped := 0
	for _, b := range mol.Bonds {
		if !present[b.I] || !present[b.J] {
			continue
		}
		d := r3.Norm(r3.Sub(mol.Atoms[b.J].Pos, mol.Atoms[b.I].Pos))
		if d == 0 || d > maxBondLength {
			dropped++
			continue
		}
		kept = append(kept, b)
	}
	if dropped > 0 {
		logging.Logger().Debug("scene: dropped implausible bonds", "count", dropped)
	}
	if limit > 0 && len(kept) > limit {
		stride := (len(kept) + limit - 1) / limit
		out := kept[:0]
		for i := 0; i < len(kept); i += stride {
			out = append(out, kept[i])
		}
		kept = out
	}
	return kept
}

// elementMaterial fetches the shared per-element material.
func elementMaterial(mats *material.Cache, shading material.Shading, c color.RGBA) (*material.Material, error) {
	return mats.Get(shading, material.Params{Color: c, Opacity: 1})
}

// fallbackPointCloud degrades to a single point-cloud mesh when mesh
// construction fails in a way a retry cannot fix. The molecule stays
// visible, just crude.
func fallbackPointCloud(mol *pdb.Molecule, atoms []int, epoch uint64) *Group {
	g := NewGroup("pointcloud")
	positions := make([]float32, 0, len(atoms)*3)
	for _, i := range atoms {
		p := mol.Atoms[i].Pos
		positions = append(positions, float32(p.X), float32(p.Y), float32(p.Z))
	}
	g.Add(NewMesh("points", g.own(PointCloud(positions, epoch)), nil))
	return g
}

// runChunked executes the queue and applies the degradation policy:
// cancellation propagates, anything else falls back to a point cloud.
func runChunked(ctx context.Context, q *sched.Queue, mol *pdb.Molecule, atoms []int, epoch uint64, built *Group) (*Group, error) {
	if err := q.Run(ctx); err != nil {
		built.Dispose()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logging.Logger().Warn("scene: build failed, degrading to point cloud", "error", err)
		return fallbackPointCloud(mol, atoms, epoch), nil
	}
	return built, nil
}

// chunkSteps splits n items into queue steps of at most size items each,
// invoking fn with the half-open item range for the step.
func chunkSteps(n, size int, fn func(lo, hi int) error) func() (sched.Step, bool) {
	lo := 0
	return func() (sched.Step, bool) {
		if lo >= n {
			return nil, false
		}
		hi := lo + size
		if hi > n {
			hi = n
		}
		start, end := lo, hi
		lo = hi
		return func() error { return fn(start, end) }, true
	}
}
