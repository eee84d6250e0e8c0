package pdb

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/spatial/r3"
)

// SecondaryStructure classifies a residue's local backbone conformation.
type SecondaryStructure uint8

const (
	// Coil is the default classification for residues not covered by a
	// HELIX or SHEET record.
	Coil SecondaryStructure = iota

	// Helix marks residues inside a HELIX record range.
	Helix

	// Sheet marks residues inside a SHEET record range.
	Sheet
)

// String returns the classification name.
func (s SecondaryStructure) String() string {
	switch s {
	case Helix:
		return "helix"
	case Sheet:
		return "sheet"
	default:
		return "coil"
	}
}

// BondProvenance records how a bond entered the model.
type BondProvenance uint8

const (
	// BondConect marks a bond read from an explicit CONECT record.
	BondConect BondProvenance = iota

	// BondBackbone marks a canonical amino-acid backbone bond added by
	// name lookup (N-CA, CA-C, C-O, CA-CB), never distance-checked.
	BondBackbone

	// BondDistance marks a bond inferred from inter-atom distance.
	BondDistance

	// BondPeptide marks an inter-residue peptide bond between the C atom
	// of one residue and the N atom of the next.
	BondPeptide
)

// String returns the provenance name.
func (p BondProvenance) String() string {
	switch p {
	case BondBackbone:
		return "backbone"
	case BondDistance:
		return "distance"
	case BondPeptide:
		return "peptide"
	default:
		return "conect"
	}
}

// Atom is a single atom record. Atoms are immutable once Parse returns.
//
// Pos is always finite: coordinate fields that fail to parse fall back to
// the origin instead of propagating NaN (see Parse).
type Atom struct {
	// Serial is the atom serial number from columns 7-11.
	Serial int

	// Name is the trimmed atom name (e.g. "CA", "OXT").
	Name string

	// Element is the normalized uppercase element symbol, taken from the
	// element column when present, otherwise inferred from Name.
	Element string

	// AltLoc is the alternate-location indicator; only blank and 'A'
	// survive parsing.
	AltLoc byte

	// Pos is the atom position in Ångström.
	Pos r3.Vec

	// Occupancy and TempFactor are the optional crystallographic fields;
	// zero when absent or unparseable.
	Occupancy  float64
	TempFactor float64

	// VdwRadius is the van der Waals radius from the element table,
	// 1.0 Å for unknown elements.
	VdwRadius float64

	// Color is the display color from the element table, yellow for
	// unknown elements.
	Color color.RGBA

	// Residue membership.
	Chain   string
	ResName string
	ResSeq  int
	ICode   byte

	// Het reports whether the atom came from a HETATM record.
	Het bool

	// Classification flags derived from ResName.
	IsAmino   bool
	IsNucleic bool
	IsSolvent bool
}

// ResidueKey returns the identity key of the residue this atom belongs to.
func (a *Atom) ResidueKey() ResidueKey {
	return ResidueKey{Chain: a.Chain, Name: a.ResName, Seq: a.ResSeq, ICode: a.ICode}
}

// Bond links two atoms by index into the parsed atom sequence (not by
// serial number). The invariant I != J holds, and no unordered pair is
// stored twice in a Molecule.
type Bond struct {
	// I and J are indices into Molecule atoms, I < J.
	I, J int

	// Order is the bond order; parsing and inference always produce 1.
	Order int

	// Provenance records how the bond was derived.
	Provenance BondProvenance
}

// pairKey returns the canonical unordered key for duplicate detection.
func (b Bond) pairKey() [2]int {
	if b.I < b.J {
		return [2]int{b.I, b.J}
	}
	return [2]int{b.J, b.I}
}

// ResidueKey identifies a residue: chain, residue name, sequence number and
// insertion code together are unique within a structure.
type ResidueKey struct {
	Chain string
	Name  string
	Seq   int
	ICode byte
}

// String formats the key for logs and errors.
func (k ResidueKey) String() string {
	if k.ICode != 0 && k.ICode != ' ' {
		return fmt.Sprintf("%s/%s%d%c", k.Chain, k.Name, k.Seq, k.ICode)
	}
	return fmt.Sprintf("%s/%s%d", k.Chain, k.Name, k.Seq)
}

// Residue is an ordered group of atoms sharing one ResidueKey.
type Residue struct {
	Key ResidueKey

	// Atoms holds indices into the Molecule atom sequence, in parse order.
	Atoms []int

	// Structure is the secondary-structure classification, Coil by default.
	Structure SecondaryStructure
}

// atomIndex returns the index of the first atom with the given name,
// or -1 when the residue has no such atom.
func (r *Residue) atomIndex(m *Molecule, name string) int {
	for _, i := range r.Atoms {
		if m.Atoms[i].Name == name {
			return i
		}
	}
	return -1
}

// Chain is an ordered view of the residues sharing one chain identifier.
type Chain struct {
	ID string

	// Residues holds keys in ascending (Seq, ICode) order.
	Residues []ResidueKey
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min, Max r3.Vec
}

// Center returns the box center.
func (b Box) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Size returns the box extent along each axis.
func (b Box) Size() r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// Molecule is the validated molecular graph produced by Parse.
//
// A Molecule is constructed once per successful parse and never mutated
// afterwards. The rendering layer holds a read-only reference; loading a
// new structure replaces the Molecule wholesale.
type Molecule struct {
	// ID is the four-character PDB ID code from the HEADER record.
	ID string

	// Classification is the free-text HEADER classification.
	Classification string

	// Title is the concatenated TITLE record text.
	Title string

	// Atoms is the parsed atom sequence. Bond indices refer into it.
	Atoms []Atom

	// Bonds is the deduplicated bond set.
	Bonds []Bond

	residues     map[ResidueKey]*Residue
	residueOrder []ResidueKey
	chains       []*Chain

	bounds Box
	center r3.Vec
}

// AtomCount returns the number of parsed atoms.
func (m *Molecule) AtomCount() int { return len(m.Atoms) }

// BondCount returns the number of bonds.
func (m *Molecule) BondCount() int { return len(m.Bonds) }

// Residue returns the residue for a key, or nil when absent.
func (m *Molecule) Residue(key ResidueKey) *Residue {
	return m.residues[key]
}

// Residues returns all residues in first-appearance order.
func (m *Molecule) Residues() []*Residue {
	out := make([]*Residue, 0, len(m.residueOrder))
	for _, key := range m.residueOrder {
		out = append(out, m.residues[key])
	}
	return out
}

// Chains returns the chains in first-appearance order. Residues within a
// chain are sorted by sequence number and insertion code.
func (m *Molecule) Chains() []*Chain { return m.chains }

// Chain returns the chain with the given identifier, or nil.
func (m *Molecule) Chain(id string) *Chain {
	for _, c := range m.chains {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Bounds returns the axis-aligned bounding box over all atom positions,
// padded by a fixed margin.
func (m *Molecule) Bounds() Box { return m.bounds }

// Center returns the mass-weighted center of the structure.
func (m *Molecule) Center() r3.Vec { return m.center }
