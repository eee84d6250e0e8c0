package molview

import (
	"context"
	"errors"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/gogpu/molview/internal/logging"
	"github.com/gogpu/molview/loader"
	"github.com/gogpu/molview/material"
	"github.com/gogpu/molview/pdb"
	"github.com/gogpu/molview/render"
	"github.com/gogpu/molview/scene"
)

var (
	// ErrLoadInFlight is returned by Load while another load is running.
	// Loads are single-flight; the caller decides whether to cancel and
	// retry or to wait.
	ErrLoadInFlight = errors.New("molview: a load is already in progress")

	// ErrClosed is returned by operations on a closed viewer.
	ErrClosed = errors.New("molview: viewer closed")

	// ErrSnapshotUnsupported is returned by Snapshot when the host surface
	// device cannot read frames back.
	ErrSnapshotUnsupported = errors.New("molview: surface device cannot read frames")
)

// FrameReader is the optional interface a render.SurfaceDevice implements
// to support Snapshot.
type FrameReader interface {
	ReadFrame() (image.Image, error)
}

// Viewer ties the pieces together: it owns the surface manager, the
// material cache and the current scene, and exposes the host-facing API.
//
// The viewer never creates a GPU device. The host passes its device
// handle and a surface factory at construction and keeps ownership; on a
// context loss the host forwards the platform event to Surface().
//
// All methods are safe for concurrent use, though the expected pattern is
// a single host goroutine driving everything.
type Viewer struct {
	mu      sync.Mutex
	manager *render.Manager
	mats    *material.Cache
	opts    viewerOptions

	mol    *pdb.Molecule
	group  *scene.Group
	camera Camera

	loading      bool
	pendingBuild bool

	pageVisible     bool
	viewportVisible bool

	handlers    map[int]EventHandler
	nextHandler int

	closed bool
}

// NewViewer creates a viewer over a host-owned device. Surface creation
// happens immediately; a device that cannot produce a surface even with
// the degraded profile fails construction.
func NewViewer(handle render.DeviceHandle, factory render.Factory, opts ...ViewerOption) (*Viewer, error) {
	o := defaultViewerOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := render.NewManager()
	if err := m.Create(handle, factory, o.surface); err != nil {
		return nil, err
	}

	v := &Viewer{
		manager:         m,
		mats:            material.NewCache(m.Epoch()),
		opts:            o,
		pageVisible:     true,
		viewportVisible: true,
		handlers:        make(map[int]EventHandler),
	}
	// Order matters: the cache must adopt the new epoch before the viewer
	// rebuilds the scene against it.
	m.Subscribe(v.mats)
	m.Subscribe(v)
	return v, nil
}

// Surface exposes the surface lifecycle manager so the host can forward
// platform events (context loss, restore, resize) and drive recovery.
func (v *Viewer) Surface() *render.Manager { return v.manager }

// Materials exposes the material cache, mainly for stats.
func (v *Viewer) Materials() *material.Cache { return v.mats }

// OnEvent registers an event handler and returns its unsubscribe
// function.
func (v *Viewer) OnEvent(h EventHandler) func() {
	v.mu.Lock()
	id := v.nextHandler
	v.nextHandler++
	v.handlers[id] = h
	v.mu.Unlock()
	return func() {
		v.mu.Lock()
		delete(v.handlers, id)
		v.mu.Unlock()
	}
}

// emit delivers an event outside the viewer lock.
func (v *Viewer) emit(e Event) {
	v.mu.Lock()
	hs := make([]EventHandler, 0, len(v.handlers))
	for _, h := range v.handlers {
		hs = append(hs, h)
	}
	v.mu.Unlock()
	for _, h := range hs {
		h(e)
	}
}

// Load fetches, parses and displays a structure. Loads are single-flight:
// a call while another load runs fails fast with ErrLoadInFlight rather
// than queueing. On any failure the previously displayed structure is
// left untouched.
func (v *Viewer) Load(ctx context.Context, src loader.Source) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.loading {
		v.mu.Unlock()
		return ErrLoadInFlight
	}
	v.loading = true
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.loading = false
		v.mu.Unlock()
	}()

	v.emit(Event{Kind: EventLoadStart, Source: src.Name()})

	mol, err := loader.Fetch(ctx, src, func(f float64) {
		v.emit(Event{Kind: EventLoadProgress, Source: src.Name(), Fraction: f})
	})
	if err != nil {
		v.emit(Event{Kind: EventLoadError, Source: src.Name(), Err: err})
		return err
	}

	// Build against the new structure before adopting it, so a cancelled
	// or failed build leaves the old structure on screen.
	group, err := v.buildScene(ctx, mol)
	if err != nil {
		v.emit(Event{Kind: EventLoadError, Source: src.Name(), Err: err})
		return err
	}

	v.mu.Lock()
	old := v.group
	v.mol = mol
	v.group = group
	v.camera = frameCamera(mol)
	if group == nil {
		// Surface not active: replay the build once after restore.
		v.pendingBuild = true
	}
	v.mu.Unlock()
	if old != nil {
		old.Dispose()
	}

	v.emit(Event{Kind: EventLoadComplete, Source: src.Name()})
	return nil
}

// buildScene constructs a subtree for mol with the current style, or
// returns nil when the surface is not active.
func (v *Viewer) buildScene(ctx context.Context, mol *pdb.Molecule) (*scene.Group, error) {
	v.mu.Lock()
	style, cfg := v.opts.style, v.opts.build
	v.mu.Unlock()
	if !v.manager.Active() {
		return nil, nil
	}
	builder := scene.ForStyle(style, v.mats, v.manager.Capabilities(), cfg)
	return builder.Build(ctx, mol)
}

// rebuild reconstructs the scene for the current structure, replacing
// whatever was displayed. A nil structure is a no-op.
func (v *Viewer) rebuild(ctx context.Context) error {
	v.mu.Lock()
	mol := v.mol
	closed := v.closed
	v.mu.Unlock()
	if mol == nil || closed {
		return nil
	}

	group, err := v.buildScene(ctx, mol)
	if err != nil {
		return err
	}

	v.mu.Lock()
	old := v.group
	v.group = group
	v.pendingBuild = group == nil
	v.mu.Unlock()
	if old != nil {
		old.Dispose()
	}
	return nil
}

// SetStyle switches the representation style and rebuilds the scene.
func (v *Viewer) SetStyle(ctx context.Context, s scene.Style) error {
	v.mu.Lock()
	v.opts.style = s
	v.mu.Unlock()
	if err := v.rebuild(ctx); err != nil {
		return err
	}
	v.emit(Event{Kind: EventStyleChanged, Style: s})
	return nil
}

// Style returns the current representation style.
func (v *Viewer) Style() scene.Style {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opts.style
}

// SetShading switches the shading model. Materials are keyed by shading,
// so this rebuilds the scene against fresh cache entries.
func (v *Viewer) SetShading(ctx context.Context, s material.Shading) error {
	v.mu.Lock()
	v.opts.build.Shading = s
	v.mu.Unlock()
	if err := v.rebuild(ctx); err != nil {
		return err
	}
	v.emit(Event{Kind: EventShadingChanged, Shading: s})
	return nil
}

// SetEffectStrength tunes the shading effect uniform on all live
// materials in place. No geometry is rebuilt and no event fires; this is
// the continuous path for slider-style controls.
func (v *Viewer) SetEffectStrength(x float64) {
	v.mats.SetEffectStrength(x)
}

// SetPageVisible records whether the hosting page or window is visible.
func (v *Viewer) SetPageVisible(visible bool) {
	v.mu.Lock()
	v.pageVisible = visible
	v.mu.Unlock()
}

// SetViewportVisible records whether the viewer element itself is on
// screen.
func (v *Viewer) SetViewportVisible(visible bool) {
	v.mu.Lock()
	v.viewportVisible = visible
	v.mu.Unlock()
}

// ShouldRender reports whether the host should draw a frame: both
// visibility gates open and the surface active. Hosts are expected to
// check this every frame and idle when it is false.
func (v *Viewer) ShouldRender() bool {
	v.mu.Lock()
	visible := v.pageVisible && v.viewportVisible
	v.mu.Unlock()
	return visible && v.manager.Active()
}

// Scene returns the current scene subtree, or nil when nothing is
// displayed. The host renders it; the viewer retains ownership.
func (v *Viewer) Scene() *scene.Group {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.group
}

// Molecule returns the currently displayed structure, or nil.
func (v *Viewer) Molecule() *pdb.Molecule {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mol
}

// CameraView returns the framing computed for the current structure.
func (v *Viewer) CameraView() Camera {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.camera
}

// Resize forwards a viewport size change to the surface manager.
func (v *Viewer) Resize(width, height int, pixelRatio float64) error {
	return v.manager.Resize(width, height, pixelRatio)
}

// Snapshot captures the current frame, scaled by the given factor using
// Catmull-Rom resampling. The surface device must implement FrameReader.
func (v *Viewer) Snapshot(scale float64) (image.Image, error) {
	dev := v.manager.Device()
	if dev == nil {
		return nil, render.ErrSurfaceUnavailable
	}
	fr, ok := dev.(FrameReader)
	if !ok {
		return nil, ErrSnapshotUnsupported
	}
	frame, err := fr.ReadFrame()
	if err != nil {
		return nil, err
	}
	if scale == 1 || scale <= 0 {
		return frame, nil
	}
	b := frame.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0,
		int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), frame, b, draw.Over, nil)
	return dst, nil
}

// SurfaceLost implements render.Observer. The displayed scene references
// destroyed GPU state, so it is dropped immediately and rebuilt after
// restore.
func (v *Viewer) SurfaceLost() {
	v.mu.Lock()
	old := v.group
	v.group = nil
	v.pendingBuild = v.mol != nil
	v.mu.Unlock()
	if old != nil {
		old.Dispose()
	}
	v.emit(Event{Kind: EventContextLost})
}

// SurfaceRestored implements render.Observer. The pending rebuild, if
// any, runs exactly once per restore.
func (v *Viewer) SurfaceRestored(epoch uint64) {
	v.mu.Lock()
	pending := v.pendingBuild
	v.mu.Unlock()
	if pending {
		if err := v.rebuild(context.Background()); err != nil {
			logging.Logger().Warn("molview: rebuild after restore failed", "error", err)
		}
	}
	v.emit(Event{Kind: EventContextRestored, Epoch: epoch})
}

// Close disposes the scene, the material cache and the surface. It is
// idempotent; a closed viewer rejects further loads.
func (v *Viewer) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	old := v.group
	v.group = nil
	v.mol = nil
	v.mu.Unlock()

	if old != nil {
		old.Dispose()
	}
	v.manager.Unsubscribe(v.mats)
	v.manager.Unsubscribe(v)
	v.mats.InvalidateAll()
	v.manager.Dispose()
}

var _ render.Observer = (*Viewer)(nil)
