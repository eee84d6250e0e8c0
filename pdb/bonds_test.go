package pdb

import (
	"reflect"
	"strings"
	"testing"
)

func countProvenance(m *Molecule, p BondProvenance) int {
	n := 0
	for _, b := range m.Bonds {
		if b.Provenance == p {
			n++
		}
	}
	return n
}

func TestInferBonds_ThreeCarbonChain(t *testing.T) {
	// Three carbons at 1.5 Å spacing inside one residue: the 1-2 and 2-3
	// pairs sit under the C-C threshold, the 1-3 pair (3.0 Å) does not.
	input := strings.Join([]string{
		hetatmLine(1, "C1", "LIG", "A", 1, 0.0, 0, 0),
		hetatmLine(2, "C2", "LIG", "A", 1, 1.5, 0, 0),
		hetatmLine(3, "C3", "LIG", "A", 1, 3.0, 0, 0),
	}, "\n")

	m, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.BondCount() != 2 {
		t.Fatalf("BondCount() = %d, want exactly 2 inferred bonds", m.BondCount())
	}
	for _, b := range m.Bonds {
		if b.Provenance != BondDistance {
			t.Errorf("bond %v provenance = %v, want distance", b, b.Provenance)
		}
	}
	want := [][2]int{{0, 1}, {1, 2}}
	for i, b := range m.Bonds {
		if b.I != want[i][0] || b.J != want[i][1] {
			t.Errorf("bond %d = (%d,%d), want %v", i, b.I, b.J, want[i])
		}
	}
}

func TestInferBonds_SkippedWhenConectPresent(t *testing.T) {
	// Explicit connectivity already covers the structure; inference must
	// not fire and the bond count must stay unchanged.
	input := strings.Join([]string{
		hetatmLine(1, "C1", "LIG", "A", 1, 0.0, 0, 0),
		hetatmLine(2, "C2", "LIG", "A", 1, 1.5, 0, 0),
		conectLine(1, 2),
	}, "\n")

	m, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.BondCount() != 1 {
		t.Fatalf("BondCount() = %d, want 1 CONECT bond", m.BondCount())
	}

	InferBonds(m)
	if m.BondCount() != 1 {
		t.Errorf("InferBonds on connected model changed bond count to %d", m.BondCount())
	}
	if countProvenance(m, BondDistance) != 0 {
		t.Errorf("inference added distance bonds to a connected model")
	}
}

func TestInferBonds_BackboneTemplate(t *testing.T) {
	// Backbone bonds are added by name lookup, never distance-checked:
	// place the atoms absurdly far apart and expect them anyway.
	input := strings.Join([]string{
		atomLine(1, "N", "ALA", "A", 1, 0, 0, 0),
		atomLine(2, "CA", "ALA", "A", 1, 20, 0, 0),
		atomLine(3, "C", "ALA", "A", 1, 40, 0, 0),
		atomLine(4, "O", "ALA", "A", 1, 60, 0, 0),
		atomLine(5, "CB", "ALA", "A", 1, 80, 0, 0),
	}, "\n")

	m, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := countProvenance(m, BondBackbone); got != 4 {
		t.Fatalf("backbone bonds = %d, want 4 (N-CA, CA-C, C-O, CA-CB)", got)
	}
	if got := countProvenance(m, BondDistance); got != 0 {
		t.Errorf("distance bonds = %d, want 0 for stretched residue", got)
	}
}

func TestInferBonds_PeptideLink(t *testing.T) {
	input := strings.Join([]string{
		atomLine(1, "N", "ALA", "A", 1, 0.0, 0, 0),
		atomLine(2, "CA", "ALA", "A", 1, 1.46, 0, 0),
		atomLine(3, "C", "ALA", "A", 1, 2.98, 0, 0),
		atomLine(4, "N", "GLY", "A", 2, 4.31, 0, 0),
		atomLine(5, "CA", "GLY", "A", 2, 5.77, 0, 0),
	}, "\n")

	m, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := countProvenance(m, BondPeptide); got != 1 {
		t.Fatalf("peptide bonds = %d, want 1", got)
	}
	for _, b := range m.Bonds {
		if b.Provenance != BondPeptide {
			continue
		}
		if m.Atoms[b.I].Name != "C" || m.Atoms[b.J].Name != "N" {
			t.Errorf("peptide bond links %s-%s, want C-N",
				m.Atoms[b.I].Name, m.Atoms[b.J].Name)
		}
	}
}

func TestInferBonds_NoPeptideAcrossGap(t *testing.T) {
	// Residues 1 and 3 are not sequence-consecutive; no peptide bond.
	input := strings.Join([]string{
		atomLine(1, "C", "ALA", "A", 1, 0.0, 0, 0),
		atomLine(2, "N", "GLY", "A", 3, 1.33, 0, 0),
	}, "\n")

	m, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := countProvenance(m, BondPeptide); got != 0 {
		t.Errorf("peptide bonds across sequence gap = %d, want 0", got)
	}
}

func TestInferBonds_Deterministic(t *testing.T) {
	lines := []string{
		atomLine(1, "N", "ALA", "B", 5, 0.0, 0, 0),
		atomLine(2, "CA", "ALA", "B", 5, 1.46, 0, 0),
		atomLine(3, "C", "ALA", "B", 5, 2.0, 1.3, 0),
		atomLine(4, "O", "ALA", "B", 5, 1.6, 2.4, 0),
		atomLine(5, "CB", "ALA", "B", 5, 2.2, -1.2, 0.6),
		atomLine(6, "N", "SER", "B", 6, 3.3, 1.3, 0),
		atomLine(7, "CA", "SER", "B", 6, 4.2, 2.4, 0.1),
		atomLine(8, "OG", "SER", "B", 6, 5.4, 2.0, 0.8),
	}
	input := strings.Join(lines, "\n")

	m1, _ := Parse(input)
	m2, _ := Parse(input)
	if !reflect.DeepEqual(m1.Bonds, m2.Bonds) {
		t.Errorf("inferred bond sets differ across runs:\n%v\n%v", m1.Bonds, m2.Bonds)
	}
}

func TestInferBonds_NoDuplicatePairs(t *testing.T) {
	input := strings.Join([]string{
		atomLine(1, "N", "GLY", "A", 1, 0.0, 0, 0),
		atomLine(2, "CA", "GLY", "A", 1, 1.46, 0, 0),
		atomLine(3, "C", "GLY", "A", 1, 2.5, 1.1, 0),
		atomLine(4, "O", "GLY", "A", 1, 2.3, 2.3, 0),
	}, "\n")

	m, err := Parse(input)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	seen := make(map[[2]int]bool)
	for _, b := range m.Bonds {
		k := b.pairKey()
		if seen[k] {
			t.Errorf("duplicate unordered pair %v", k)
		}
		seen[k] = true
		if b.I == b.J {
			t.Errorf("self-bond %v", b)
		}
	}
	// N-CA and CA-C are close enough for the distance pass too; the
	// backbone pass must have claimed them first.
	if got := countProvenance(m, BondBackbone); got != 3 {
		t.Errorf("backbone bonds = %d, want 3 for glycine (no CB)", got)
	}
}

func TestInferBonds_TooCloseRejected(t *testing.T) {
	// Two atoms that both fell back to the origin must not bond.
	bad1 := atomLine(1, "C1", "LIG", "A", 1, 0, 0, 0)
	bad1 = bad1[:30] + "   xx.xx" + bad1[38:]
	bad2 := atomLine(2, "C2", "LIG", "A", 1, 0, 0, 0)
	bad2 = bad2[:30] + "   yy.yy" + bad2[38:]
	// HETATM variants keep the residue non-amino.
	bad1 = "HETATM" + bad1[6:]
	bad2 = "HETATM" + bad2[6:]

	m, err := Parse(bad1 + "\n" + bad2)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.BondCount() != 0 {
		t.Errorf("BondCount() = %d, want 0 for coincident origin atoms", m.BondCount())
	}
}

func TestBondThreshold_SymmetricLookup(t *testing.T) {
	if bondThreshold("N", "C") != bondThreshold("C", "N") {
		t.Errorf("threshold lookup is order-dependent")
	}
	if got := bondThreshold("XX", "YY"); got != defaultBondThreshold {
		t.Errorf("unknown pair threshold = %v, want default %v", got, defaultBondThreshold)
	}
}
