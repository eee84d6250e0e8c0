package pdb

import (
	"image/color"
	"strings"
)

// Default values for elements missing from the lookup tables.
const (
	defaultVdwRadius = 1.0
	defaultMass      = 12.0
)

// defaultColor is the display color for unknown elements.
var defaultColor = color.RGBA{R: 0xff, G: 0xff, B: 0x00, A: 0xff} // yellow

// vdwRadii maps element symbols to van der Waals radii in Ångström.
// Values from 10.1021/j100785a001 and 10.1021/jp8111556; metal radii from
// 10.1023/A:1011625728803. Only common bio-elements are listed.
var vdwRadii = map[string]float64{
	"H":  1.10,
	"C":  1.70,
	"N":  1.55,
	"O":  1.52,
	"P":  1.80,
	"S":  1.80,
	"SE": 1.90,
	"F":  1.47,
	"CL": 1.75,
	"BR": 1.83,
	"I":  1.98,
	"NA": 2.27,
	"K":  2.75,
	"MG": 1.73,
	"CA": 2.31,
	"MN": 1.96,
	"FE": 1.96,
	"CO": 1.95,
	"CU": 2.00,
	"ZN": 2.02,
	"SI": 2.10,
}

// covalentRadii maps element symbols to covalent radii in Ångström.
// Values from Cordero et al., 2008 (DOI:10.1039/B801115J). The hydrogen
// radius is enlarged to 0.4; H can only form one bond, so a generous radius
// does not create spurious connectivity.
var covalentRadii = map[string]float64{
	"H":  0.4,
	"C":  0.76,
	"N":  0.71,
	"O":  0.66,
	"P":  1.07,
	"S":  1.05,
	"SE": 1.2,
	"F":  0.57,
	"CL": 1.02,
	"BR": 1.2,
	"I":  1.39,
	"NA": 1.66,
	"K":  2.03,
	"MG": 1.41,
	"CA": 1.76,
	"MN": 1.61,
	"FE": 1.52,
	"CO": 1.5,
	"CU": 1.32,
	"ZN": 1.22,
	"SI": 1.11,
}

// atomicMasses maps element symbols to atomic masses. Used for the
// mass-weighted center of mass; unknown elements weigh defaultMass.
var atomicMasses = map[string]float64{
	"H":  1.008,
	"C":  12.011,
	"N":  14.007,
	"O":  15.999,
	"P":  30.974,
	"S":  32.06,
	"SE": 78.971,
	"F":  18.998,
	"CL": 35.45,
	"BR": 79.904,
	"I":  126.904,
	"NA": 22.990,
	"K":  39.098,
	"MG": 24.305,
	"CA": 40.078,
	"MN": 54.938,
	"FE": 55.845,
	"CO": 58.933,
	"CU": 63.546,
	"ZN": 65.38,
	"SI": 28.085,
}

// cpkColors maps element symbols to conventional CPK display colors.
var cpkColors = map[string]color.RGBA{
	"H":  {0xff, 0xff, 0xff, 0xff},
	"C":  {0x90, 0x90, 0x90, 0xff},
	"N":  {0x30, 0x50, 0xf8, 0xff},
	"O":  {0xff, 0x0d, 0x0d, 0xff},
	"P":  {0xff, 0x80, 0x00, 0xff},
	"S":  {0xff, 0xff, 0x30, 0xff},
	"SE": {0xff, 0xa1, 0x00, 0xff},
	"F":  {0x90, 0xe0, 0x50, 0xff},
	"CL": {0x1f, 0xf0, 0x1f, 0xff},
	"BR": {0xa6, 0x29, 0x29, 0xff},
	"I":  {0x94, 0x00, 0x94, 0xff},
	"NA": {0xab, 0x5c, 0xf2, 0xff},
	"K":  {0x8f, 0x40, 0xd4, 0xff},
	"MG": {0x8a, 0xff, 0x00, 0xff},
	"CA": {0x3d, 0xff, 0x00, 0xff},
	"MN": {0x9c, 0x7a, 0xc7, 0xff},
	"FE": {0xe0, 0x66, 0x33, 0xff},
	"CO": {0xf0, 0x90, 0xa0, 0xff},
	"CU": {0xc8, 0x80, 0x33, 0xff},
	"ZN": {0x7d, 0x80, 0xb0, 0xff},
	"SI": {0xf0, 0xc8, 0xa0, 0xff},
}

// maxBonds caps how many bonds an element accepts during inference.
// Zero means unchecked. Only hydrogen truly matters here.
var maxBonds = map[string]int{
	"H":  1,
	"C":  4,
	"O":  2,
	"F":  1,
	"BR": 1,
	"I":  1,
}

// aminoResidues is the set of residue names classified as amino acids,
// including the rare SEC/PYL and placeholder UNK.
var aminoResidues = map[string]bool{
	"ALA": true, "ARG": true, "ASN": true, "ASP": true, "CYS": true,
	"GLU": true, "GLN": true, "GLY": true, "HIS": true, "ILE": true,
	"LEU": true, "LYS": true, "MET": true, "PHE": true, "PRO": true,
	"SER": true, "THR": true, "TRP": true, "TYR": true, "VAL": true,
	"SEC": true, "PYL": true, "UNK": true, "ASX": true, "GLX": true,
}

// nucleicResidues is the set of residue names classified as nucleotides.
var nucleicResidues = map[string]bool{
	"A": true, "C": true, "G": true, "U": true, "I": true, "T": true,
	"DA": true, "DC": true, "DG": true, "DT": true, "DU": true, "DI": true,
}

// solventResidues is the set of residue names classified as solvent.
var solventResidues = map[string]bool{
	"HOH": true, "WAT": true, "DOD": true, "SOL": true, "TIP": true,
}

// VdwRadius returns the van der Waals radius for an element symbol,
// defaultVdwRadius when unknown.
func VdwRadius(element string) float64 {
	if r, ok := vdwRadii[element]; ok {
		return r
	}
	return defaultVdwRadius
}

// ElementColor returns the CPK display color for an element symbol,
// yellow when unknown.
func ElementColor(element string) color.RGBA {
	if c, ok := cpkColors[element]; ok {
		return c
	}
	return defaultColor
}

// atomicMass returns the atomic mass for an element, defaultMass when
// unknown.
func atomicMass(element string) float64 {
	if m, ok := atomicMasses[element]; ok {
		return m
	}
	return defaultMass
}

// elementFromName infers an element symbol from a PDB atom name when the
// element column is absent or blank.
//
// Resolution order: strip digits and spaces; for HETATM records prefer a
// known two-letter symbol (so "FE1" resolves to iron); otherwise take the
// first letter. ATOM records never resolve to two-letter symbols because
// protein atom names like "CA" (alpha carbon) collide with metals.
func elementFromName(name string, het bool) string {
	var letters []byte
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch >= 'a' && ch <= 'z' {
			ch -= 'a' - 'A'
		}
		if ch >= 'A' && ch <= 'Z' {
			letters = append(letters, ch)
		}
	}
	if len(letters) == 0 {
		return ""
	}
	if het && len(letters) >= 2 {
		two := string(letters[:2])
		if _, ok := vdwRadii[two]; ok {
			return two
		}
	}
	return string(letters[:1])
}

// normalizeElement uppercases and trims an element column value.
func normalizeElement(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
