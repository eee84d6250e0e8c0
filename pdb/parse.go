package pdb

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gogpu/molview/internal/logging"
)

// boundsPadding is the fixed margin added around the atom bounding box.
const boundsPadding = 2.0

// Minimum line widths per record type. Shorter lines are skipped.
const (
	minAtomLine   = 54 // through the z coordinate field
	minConectLine = 16 // base serial plus one partner
	minHelixLine  = 38
	minSheetLine  = 38
	minHeaderLine = 50
	minTitleLine  = 11
)

// ParseErrorKind classifies top-level parse failures.
type ParseErrorKind int

const (
	// KindEmptyOrInvalidStructure reports empty input or input from which
	// no atoms could be recovered. Per-record problems never produce this;
	// they are logged and skipped.
	KindEmptyOrInvalidStructure ParseErrorKind = iota
)

// ParseError is the only error type returned by Parse.
type ParseError struct {
	Kind   ParseErrorKind
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return "pdb: " + e.Reason
}

// ssRange is a HELIX or SHEET residue range noted during the line pass and
// applied to residues in the post-pass.
type ssRange struct {
	kind       SecondaryStructure
	chain      string
	start, end int
}

// parser accumulates state across the single line pass.
type parser struct {
	mol      *Molecule
	bondKeys map[[2]int]bool
	serials  map[int]int // serial number -> atom index, first occurrence wins
	conect   [][]int     // raw CONECT serial groups, resolved in the post-pass
	ranges   []ssRange
	title    []string
	skipped  int
}

// Parse converts PDB text into a Molecule.
//
// Per-line parsing is defensive: malformed or truncated lines are logged at
// Warn level and skipped without failing the parse. Atom coordinate fields
// that do not parse as finite floats fall back to the origin so that CONECT
// cross-references stay index-stable. Only the primary alternate location
// (blank or 'A') is retained.
//
// After all lines are consumed, Parse runs the post-pass in a fixed order:
// bond inference (only when no CONECT bonds were found), bounding box,
// chain grouping with residues sorted by sequence number, and the
// mass-weighted center.
//
// Parse fails only with *ParseError: empty input or zero recovered atoms.
func Parse(text string) (*Molecule, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Kind: KindEmptyOrInvalidStructure, Reason: "empty structure input"}
	}

	p := &parser{
		mol: &Molecule{
			residues: make(map[ResidueKey]*Residue),
		},
		bondKeys: make(map[[2]int]bool),
		serials:  make(map[int]int),
	}

	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if len(line) < 6 {
			continue
		}
		switch strings.TrimSpace(line[0:6]) {
		case "ATOM":
			p.parseAtom(n, line, false)
		case "HETATM":
			p.parseAtom(n, line, true)
		case "CONECT":
			p.parseConect(n, line)
		case "HELIX":
			p.parseHelix(n, line)
		case "SHEET":
			p.parseSheet(n, line)
		case "HEADER":
			p.parseHeader(line)
		case "TITLE":
			p.parseTitle(line)
		}
	}

	m := p.mol
	if len(m.Atoms) == 0 {
		return nil, &ParseError{
			Kind:   KindEmptyOrInvalidStructure,
			Reason: fmt.Sprintf("no atoms recovered (%d malformed lines skipped)", p.skipped),
		}
	}
	m.Title = strings.Join(p.title, " ")

	p.resolveConect()
	if len(m.Bonds) == 0 {
		inferBonds(m, p.bondKeys)
	}
	p.applySecondaryStructure()
	m.bounds = computeBounds(m.Atoms)
	p.groupChains()
	m.center = centerOfMass(m.Atoms)

	if p.skipped > 0 {
		logging.Logger().Warn("pdb: parse recovered with skipped records",
			"atoms", len(m.Atoms), "bonds", len(m.Bonds), "skipped", p.skipped)
	}
	return m, nil
}

// skip records a recoverable per-line failure.
func (p *parser) skip(n int, record, reason string) {
	p.skipped++
	logging.Logger().Warn("pdb: skipping malformed record",
		"line", n+1, "record", record, "reason", reason)
}

// parseAtom handles ATOM and HETATM records.
func (p *parser) parseAtom(n int, line string, het bool) {
	if len(line) < minAtomLine {
		p.skip(n, "ATOM", "line shorter than coordinate fields")
		return
	}

	altLoc := line[16]
	if altLoc != ' ' && altLoc != 'A' {
		return // secondary alternate location, dropped silently
	}

	serial, err := strconv.Atoi(strings.TrimSpace(line[6:11]))
	if err != nil {
		p.skip(n, "ATOM", "unparseable serial number")
		return
	}
	if _, dup := p.serials[serial]; dup {
		return // duplicate serial (e.g. altLoc 'A' already captured)
	}

	name := strings.TrimSpace(line[12:16])
	resName := strings.TrimSpace(line[17:20])
	chain := strings.TrimSpace(line[21:22])
	resSeq, _ := strconv.Atoi(strings.TrimSpace(line[22:26]))
	iCode := line[26]
	if iCode == ' ' {
		iCode = 0
	}

	pos, ok := parseCoords(line)
	if !ok {
		// Deliberate tradeoff: keep the atom at the origin instead of
		// dropping it, so CONECT serial references stay index-aligned.
		logging.Logger().Warn("pdb: unparseable coordinates, atom placed at origin",
			"line", n+1, "serial", serial, "name", name)
	}

	element := ""
	if len(line) >= 78 {
		element = normalizeElement(line[76:78])
	}
	if element == "" {
		element = elementFromName(name, het)
	}

	atom := Atom{
		Serial:     serial,
		Name:       name,
		Element:    element,
		AltLoc:     altLoc,
		Pos:        pos,
		VdwRadius:  VdwRadius(element),
		Color:      ElementColor(element),
		Chain:      chain,
		ResName:    resName,
		ResSeq:     resSeq,
		ICode:      iCode,
		Het:        het,
		IsAmino:    aminoResidues[resName],
		IsNucleic:  nucleicResidues[resName],
		IsSolvent:  solventResidues[resName],
		Occupancy:  optionalFloat(line, 54, 60),
		TempFactor: optionalFloat(line, 60, 66),
	}

	idx := len(p.mol.Atoms)
	p.mol.Atoms = append(p.mol.Atoms, atom)
	p.serials[serial] = idx

	key := atom.ResidueKey()
	res, ok := p.mol.residues[key]
	if !ok {
		res = &Residue{Key: key}
		p.mol.residues[key] = res
		p.mol.residueOrder = append(p.mol.residueOrder, key)
	}
	res.Atoms = append(res.Atoms, idx)
}

// parseCoords reads the x/y/z fields. It reports false and returns the
// origin when any field is missing, unparseable, or non-finite.
func parseCoords(line string) (r3.Vec, bool) {
	x, okx := coordField(line, 30, 38)
	y, oky := coordField(line, 38, 46)
	z, okz := coordField(line, 46, 54)
	if !okx || !oky || !okz {
		return r3.Vec{}, false
	}
	return r3.Vec{X: x, Y: y, Z: z}, true
}

func coordField(line string, from, to int) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(line[from:to]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// optionalFloat reads a float field that may be absent; zero on failure.
func optionalFloat(line string, from, to int) float64 {
	if len(line) < to {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(line[from:to]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// parseConect collects raw serial groups; resolution against atom indices
// happens in the post-pass so record order does not matter.
func (p *parser) parseConect(n int, line string) {
	if len(line) < minConectLine {
		p.skip(n, "CONECT", "line shorter than one partner field")
		return
	}
	base, err := strconv.Atoi(strings.TrimSpace(line[6:11]))
	if err != nil {
		p.skip(n, "CONECT", "unparseable base serial")
		return
	}
	group := []int{base}
	for from := 11; from+5 <= len(line) && from < 31; from += 5 {
		field := strings.TrimSpace(line[from : from+5])
		if field == "" {
			continue
		}
		serial, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		group = append(group, serial)
	}
	if len(group) > 1 {
		p.conect = append(p.conect, group)
	}
}

// resolveConect turns collected CONECT serial groups into bonds. Serials
// that reference unknown atoms, self-bonds and duplicate unordered pairs
// are dropped.
func (p *parser) resolveConect() {
	for _, group := range p.conect {
		i, ok := p.serials[group[0]]
		if !ok {
			continue
		}
		for _, serial := range group[1:] {
			j, ok := p.serials[serial]
			if !ok || i == j {
				continue
			}
			addBond(p.mol, p.bondKeys, i, j, BondConect)
		}
	}
}

// addBond appends a bond unless the unordered pair already exists.
func addBond(m *Molecule, keys map[[2]int]bool, i, j int, prov BondProvenance) bool {
	if i == j {
		return false
	}
	if i > j {
		i, j = j, i
	}
	k := [2]int{i, j}
	if keys[k] {
		return false
	}
	keys[k] = true
	m.Bonds = append(m.Bonds, Bond{I: i, J: j, Order: 1, Provenance: prov})
	return true
}

// parseHelix reads the residue range of a HELIX record.
func (p *parser) parseHelix(n int, line string) {
	if len(line) < minHelixLine {
		p.skip(n, "HELIX", "truncated record")
		return
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(line[21:25]))
	end, err2 := strconv.Atoi(strings.TrimSpace(line[33:37]))
	if err1 != nil || err2 != nil {
		p.skip(n, "HELIX", "unparseable residue range")
		return
	}
	p.ranges = append(p.ranges, ssRange{
		kind:  Helix,
		chain: strings.TrimSpace(line[19:20]),
		start: start,
		end:   end,
	})
}

// parseSheet reads the residue range of a SHEET record.
func (p *parser) parseSheet(n int, line string) {
	if len(line) < minSheetLine {
		p.skip(n, "SHEET", "truncated record")
		return
	}
	start, err1 := strconv.Atoi(strings.TrimSpace(line[22:26]))
	end, err2 := strconv.Atoi(strings.TrimSpace(line[33:37]))
	if err1 != nil || err2 != nil {
		p.skip(n, "SHEET", "unparseable residue range")
		return
	}
	p.ranges = append(p.ranges, ssRange{
		kind:  Sheet,
		chain: strings.TrimSpace(line[21:22]),
		start: start,
		end:   end,
	})
}

// parseHeader reads classification and ID code. Extra HEADER records are
// ignored rather than treated as errors.
func (p *parser) parseHeader(line string) {
	if p.mol.ID != "" || p.mol.Classification != "" {
		return
	}
	if len(line) >= minHeaderLine {
		p.mol.Classification = strings.TrimSpace(line[10:50])
	}
	if len(line) >= 66 {
		p.mol.ID = strings.TrimSpace(line[62:66])
	}
}

// parseTitle appends TITLE text; continuation lines carry a number in
// columns 9-10 and are concatenated in order of appearance.
func (p *parser) parseTitle(line string) {
	if len(line) < minTitleLine {
		return
	}
	end := len(line)
	if end > 80 {
		end = 80
	}
	if t := strings.TrimSpace(line[10:end]); t != "" {
		p.title = append(p.title, t)
	}
}

// applySecondaryStructure marks residues covered by HELIX/SHEET ranges.
// Residues keep the Coil default otherwise.
func (p *parser) applySecondaryStructure() {
	for _, rng := range p.ranges {
		for _, key := range p.mol.residueOrder {
			if key.Chain != rng.chain || key.Seq < rng.start || key.Seq > rng.end {
				continue
			}
			p.mol.residues[key].Structure = rng.kind
		}
	}
}

// groupChains builds the per-chain residue views, sorted by sequence number
// and insertion code. Chain order follows first appearance in the file.
func (p *parser) groupChains() {
	byID := make(map[string]*Chain)
	for _, key := range p.mol.residueOrder {
		c, ok := byID[key.Chain]
		if !ok {
			c = &Chain{ID: key.Chain}
			byID[key.Chain] = c
			p.mol.chains = append(p.mol.chains, c)
		}
		c.Residues = append(c.Residues, key)
	}
	for _, c := range p.mol.chains {
		sort.SliceStable(c.Residues, func(i, j int) bool {
			if c.Residues[i].Seq != c.Residues[j].Seq {
				return c.Residues[i].Seq < c.Residues[j].Seq
			}
			return c.Residues[i].ICode < c.Residues[j].ICode
		})
	}
}

// computeBounds returns the padded axis-aligned bounding box.
func computeBounds(atoms []Atom) Box {
	min := atoms[0].Pos
	max := atoms[0].Pos
	for _, a := range atoms[1:] {
		min.X = math.Min(min.X, a.Pos.X)
		min.Y = math.Min(min.Y, a.Pos.Y)
		min.Z = math.Min(min.Z, a.Pos.Z)
		max.X = math.Max(max.X, a.Pos.X)
		max.Y = math.Max(max.Y, a.Pos.Y)
		max.Z = math.Max(max.Z, a.Pos.Z)
	}
	pad := r3.Vec{X: boundsPadding, Y: boundsPadding, Z: boundsPadding}
	return Box{Min: r3.Sub(min, pad), Max: r3.Add(max, pad)}
}

// centerOfMass returns the mass-weighted centroid.
func centerOfMass(atoms []Atom) r3.Vec {
	var sum r3.Vec
	var total float64
	for _, a := range atoms {
		m := atomicMass(a.Element)
		sum = r3.Add(sum, r3.Scale(m, a.Pos))
		total += m
	}
	return r3.Scale(1/total, sum)
}
