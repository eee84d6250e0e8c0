// Command molview inspects a PDB structure from the command line: it
// parses the file, infers bonds when none are recorded, and prints a
// summary of what the viewer would display.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/molview"
	"github.com/gogpu/molview/loader"
	"github.com/gogpu/molview/pdb"
	"github.com/gogpu/molview/scene"
)

func main() {
	var (
		id      = flag.String("id", "", "RCSB PDB identifier to download (e.g. 4HHB)")
		style   = flag.String("style", "ballstick", "representation: ballstick, spacefill or ribbon")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		molview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	src, err := pickSource(*id, flag.Args())
	if err != nil {
		log.Fatal(err)
	}

	mol, err := loader.Fetch(context.Background(), src, func(f float64) {
		if *verbose {
			fmt.Fprintf(os.Stderr, "\rloading %3.0f%%", f*100)
		}
	})
	if *verbose {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		log.Fatalf("load %s: %v", src.Name(), err)
	}

	printSummary(mol, parseStyle(*style))
}

func pickSource(id string, args []string) (loader.Source, error) {
	switch {
	case id != "":
		return loader.RCSB(id)
	case len(args) == 1:
		return loader.FileSource(args[0]), nil
	default:
		return nil, fmt.Errorf("usage: molview [-id XXXX | file.pdb[.gz]]")
	}
}

func parseStyle(s string) scene.Style {
	switch s {
	case "spacefill":
		return scene.StyleSpacefill
	case "ribbon":
		return scene.StyleRibbon
	default:
		return scene.StyleBallStick
	}
}

func printSummary(mol *pdb.Molecule, style scene.Style) {
	fmt.Printf("%s  %s\n", mol.ID, mol.Classification)
	if mol.Title != "" {
		fmt.Printf("%s\n", mol.Title)
	}
	fmt.Printf("atoms:    %d\n", mol.AtomCount())
	fmt.Printf("bonds:    %d\n", mol.BondCount())
	fmt.Printf("chains:   %d\n", len(mol.Chains()))
	fmt.Printf("residues: %d\n", len(mol.Residues()))

	byProv := map[pdb.BondProvenance]int{}
	for _, b := range mol.Bonds {
		byProv[b.Provenance]++
	}
	for _, p := range []pdb.BondProvenance{pdb.BondConect, pdb.BondBackbone, pdb.BondDistance, pdb.BondPeptide} {
		if byProv[p] > 0 {
			fmt.Printf("  %-9s %d\n", p, byProv[p])
		}
	}

	bounds := mol.Bounds()
	size := bounds.Size()
	fmt.Printf("extent:   %.1f x %.1f x %.1f A\n", size.X, size.Y, size.Z)
	fmt.Printf("style:    %s\n", style)
}
