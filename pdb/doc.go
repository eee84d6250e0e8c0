// Package pdb parses Protein Data Bank text into a validated molecular graph.
//
// # Overview
//
// The entry point is Parse, which converts fixed-column PDB records (ATOM,
// HETATM, CONECT, HELIX, SHEET, HEADER, TITLE) into a Molecule: atoms,
// bonds, residues, chains, secondary structure, bounding box and center of
// mass. Parsing is defensive; a malformed record is logged and skipped, it
// never aborts the whole parse.
//
// When a file carries no CONECT connectivity, InferBonds derives bonds from
// residue topology (canonical amino-acid backbone bonds, peptide links
// between sequence-consecutive residues) and from inter-atom distances
// checked against per-element-pair thresholds.
//
// # Quick Start
//
//	mol, err := pdb.Parse(text)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(mol.AtomCount(), "atoms,", mol.BondCount(), "bonds")
//
// A Molecule is immutable after Parse returns and safe for concurrent reads.
// Loading a new structure produces a new Molecule; existing ones are never
// mutated in place.
package pdb
