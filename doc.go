// Package molview is an embeddable 3D molecular structure viewer.
//
// The package parses PDB-format structures, infers chemical bonds when
// the file carries none, and maintains a retained 3D scene (spheres,
// cylinders, backbone ribbons) that a host renders through a GPU surface
// it owns. The viewer never creates its own GPU device: the host supplies
// one along with a surface factory, and the viewer manages configuration,
// context-loss recovery and epoch-tagged resource caches on top of it.
//
// Typical use:
//
//	v, err := molview.NewViewer(handle, factory,
//	    molview.WithStyle(scene.StyleBallStick),
//	    molview.WithBackgroundColor(color.RGBA{A: 0xff}),
//	)
//	if err != nil { ... }
//	defer v.Close()
//
//	src, _ := loader.RCSB("4HHB")
//	if err := v.Load(ctx, src); err != nil { ... }
//
// Logging is silent by default; see SetLogger.
package molview
