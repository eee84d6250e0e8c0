package molview

import (
	"image/color"

	"github.com/gogpu/molview/material"
	"github.com/gogpu/molview/render"
	"github.com/gogpu/molview/scene"
)

// ViewerOption configures a Viewer during creation.
//
// Example:
//
//	v, err := molview.NewViewer(handle, factory,
//	    molview.WithStyle(scene.StyleSpacefill),
//	    molview.WithMaxAtoms(50000),
//	)
type ViewerOption func(*viewerOptions)

// viewerOptions holds optional configuration for Viewer creation.
type viewerOptions struct {
	surface render.Config
	style   scene.Style
	build   scene.Config
}

func defaultViewerOptions() viewerOptions {
	return viewerOptions{
		surface: render.DefaultConfig(800, 600),
		style:   scene.StyleBallStick,
		build:   scene.DefaultConfig(),
	}
}

// WithSize sets the initial drawing-buffer size in pixels.
func WithSize(width, height int) ViewerOption {
	return func(o *viewerOptions) {
		o.surface.Width = width
		o.surface.Height = height
	}
}

// WithSurfaceConfig replaces the entire surface configuration. Later
// options still override individual fields.
func WithSurfaceConfig(cfg render.Config) ViewerOption {
	return func(o *viewerOptions) { o.surface = cfg }
}

// WithBackgroundColor sets the surface clear color.
func WithBackgroundColor(c color.RGBA) ViewerOption {
	return func(o *viewerOptions) { o.surface.ClearColor = c }
}

// WithStyle sets the initial representation style.
func WithStyle(s scene.Style) ViewerOption {
	return func(o *viewerOptions) { o.style = s }
}

// WithShading sets the material shading model.
func WithShading(s material.Shading) ViewerOption {
	return func(o *viewerOptions) { o.build.Shading = s }
}

// WithMaxAtoms caps the number of atoms drawn. Over-budget structures
// are subsampled, not rejected.
func WithMaxAtoms(n int) ViewerOption {
	return func(o *viewerOptions) { o.build.MaxAtoms = n }
}

// WithMaxBonds caps the number of bonds drawn, independently of the atom
// cap.
func WithMaxBonds(n int) ViewerOption {
	return func(o *viewerOptions) { o.build.MaxBonds = n }
}

// WithShowHydrogens includes hydrogen atoms in built scenes.
func WithShowHydrogens(show bool) ViewerOption {
	return func(o *viewerOptions) { o.build.ShowHydrogens = show }
}

// WithChunkSize sets how many atoms or bonds are meshed per scheduling
// turn during scene construction.
func WithChunkSize(n int) ViewerOption {
	return func(o *viewerOptions) { o.build.ChunkSize = n }
}
