package molview

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gogpu/molview/pdb"
)

// defaultFOV is the vertical field of view in degrees.
const defaultFOV = 45.0

// Camera describes the viewpoint the host should render from: an orbit
// around Target at the given distance.
type Camera struct {
	Target      r3.Vec
	Distance    float64
	FieldOfView float64
}

// frameCamera positions the camera so the whole bounding box fits in
// view with a small margin. The target is the mass-weighted center, not
// the box center, so lopsided structures sit naturally.
func frameCamera(mol *pdb.Molecule) Camera {
	bounds := mol.Bounds()
	size := bounds.Size()
	radius := r3.Norm(size) / 2
	if radius < 1 {
		radius = 1
	}
	distance := 1.05 * radius / math.Tan(defaultFOV/2*math.Pi/180)
	return Camera{
		Target:      mol.Center(),
		Distance:    distance,
		FieldOfView: defaultFOV,
	}
}
