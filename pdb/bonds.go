package pdb

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Bond inference tuning. The tolerance added to covalent radii sums and the
// lower distance cutoff follow DOI:10.1186/1758-2946-3-33.
const (
	bondTolerance = 0.45

	// tooClose rejects pairs closer than any chemical bond. This also
	// keeps atoms that fell back to the origin from bonding to each other.
	tooClose = 0.4

	// defaultBondThreshold applies to element pairs absent from both the
	// pair table and the covalent radii table.
	defaultBondThreshold = 2.0
)

// bondPairThresholds lists maximum bonding distances for common element
// pairs. Keys are alphabetically ordered so lookups are stable.
var bondPairThresholds = map[[2]string]float64{
	{"C", "C"}: 1.97,
	{"C", "N"}: 1.92,
	{"C", "O"}: 1.87,
	{"C", "S"}: 2.26,
	{"N", "N"}: 1.87,
	{"N", "O"}: 1.82,
	{"O", "O"}: 1.77,
	{"O", "P"}: 2.18,
	{"O", "S"}: 2.16,
	{"S", "S"}: 2.55,
	{"C", "H"}: 1.61,
	{"H", "N"}: 1.56,
	{"H", "O"}: 1.51,
}

// backbonePairs are the canonical amino-acid backbone bonds added by name
// lookup, never subject to distance checks.
var backbonePairs = [4][2]string{
	{"N", "CA"},
	{"CA", "C"},
	{"C", "O"},
	{"CA", "CB"},
}

// InferBonds populates the bond set of a molecule parsed without CONECT
// connectivity. It is a no-op when the molecule already has bonds, so
// running it on a fully connected model never changes the bond count.
//
// Given the same atom ordering the inferred bond set is identical across
// runs: residues are visited in file order, atoms in parse order, and no
// step depends on map iteration order.
func InferBonds(m *Molecule) {
	if len(m.Bonds) > 0 {
		return
	}
	keys := make(map[[2]int]bool)
	inferBonds(m, keys)
}

// inferBonds derives bonds from residue topology and inter-atom distances.
//
// Within each residue: backbone template bonds first (amino acids only),
// then a distance check over the remaining atom pairs. Across residues:
// peptide bonds between the C atom of one amino residue and the N atom of
// the sequence-consecutive residue in the same chain. The pair loop is
// quadratic only in residue size, never over the whole molecule.
func inferBonds(m *Molecule, keys map[[2]int]bool) {
	degrees := make(map[int]int)

	for _, key := range m.residueOrder {
		res := m.residues[key]

		if aminoResidues[key.Name] {
			for _, pair := range backbonePairs {
				i := res.atomIndex(m, pair[0])
				j := res.atomIndex(m, pair[1])
				if i < 0 || j < 0 {
					continue
				}
				if addBond(m, keys, i, j, BondBackbone) {
					degrees[i]++
					degrees[j]++
				}
			}
		}

		for a := 0; a < len(res.Atoms); a++ {
			for b := a + 1; b < len(res.Atoms); b++ {
				i, j := res.Atoms[a], res.Atoms[b]
				if atDegreeCap(&m.Atoms[i], degrees[i]) || atDegreeCap(&m.Atoms[j], degrees[j]) {
					continue
				}
				d := r3.Norm(r3.Sub(m.Atoms[i].Pos, m.Atoms[j].Pos))
				if d <= tooClose || d > bondThreshold(m.Atoms[i].Element, m.Atoms[j].Element) {
					continue
				}
				if addBond(m, keys, i, j, BondDistance) {
					degrees[i]++
					degrees[j]++
				}
			}
		}
	}

	for _, seq := range chainSequences(m) {
		for k := 0; k+1 < len(seq); k++ {
			cur, next := m.residues[seq[k]], m.residues[seq[k+1]]
			if !aminoResidues[cur.Key.Name] || !aminoResidues[next.Key.Name] {
				continue
			}
			if next.Key.Seq != cur.Key.Seq+1 {
				continue
			}
			c := cur.atomIndex(m, "C")
			n := next.atomIndex(m, "N")
			if c < 0 || n < 0 {
				continue
			}
			addBond(m, keys, c, n, BondPeptide)
		}
	}
}

// atDegreeCap reports whether an atom has reached its maximum bond count.
// Elements without a listed cap are never limited.
func atDegreeCap(a *Atom, degree int) bool {
	limit, ok := maxBonds[a.Element]
	return ok && limit > 0 && degree >= limit
}

// bondThreshold returns the maximum bonding distance for an element pair:
// pair table first, then the covalent radii sum plus tolerance, then the
// default for unknown chemistry.
func bondThreshold(e1, e2 string) float64 {
	if e1 > e2 {
		e1, e2 = e2, e1
	}
	if t, ok := bondPairThresholds[[2]string{e1, e2}]; ok {
		return t
	}
	c1, ok1 := covalentRadii[e1]
	c2, ok2 := covalentRadii[e2]
	if ok1 && ok2 {
		return c1 + c2 + bondTolerance
	}
	return defaultBondThreshold
}

// chainSequences groups residue keys by chain in first-appearance order,
// each chain's keys sorted by sequence number and insertion code. Built
// from residueOrder so it works before the chain views exist.
func chainSequences(m *Molecule) [][]ResidueKey {
	var order []string
	byChain := make(map[string][]ResidueKey)
	for _, key := range m.residueOrder {
		if _, ok := byChain[key.Chain]; !ok {
			order = append(order, key.Chain)
		}
		byChain[key.Chain] = append(byChain[key.Chain], key)
	}
	out := make([][]ResidueKey, 0, len(order))
	for _, id := range order {
		seq := byChain[id]
		sort.SliceStable(seq, func(i, j int) bool {
			if seq[i].Seq != seq[j].Seq {
				return seq[i].Seq < seq[j].Seq
			}
			return seq[i].ICode < seq[j].ICode
		})
		out = append(out, seq)
	}
	return out
}
