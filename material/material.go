package material

import (
	"fmt"
	"image/color"
	"sync"

	"github.com/gogpu/wgpu/hal"
)

// Shading selects the shading model compiled into a material.
type Shading uint8

const (
	// ShadingBasic is unlit flat color.
	ShadingBasic Shading = iota

	// ShadingLambert is diffuse-only lighting.
	ShadingLambert

	// ShadingGlossy adds a Blinn-Phong specular term.
	ShadingGlossy

	// ShadingToon quantizes the diffuse term into bands.
	ShadingToon
)

// String returns the shading model name.
func (s Shading) String() string {
	switch s {
	case ShadingLambert:
		return "lambert"
	case ShadingGlossy:
		return "glossy"
	case ShadingToon:
		return "toon"
	default:
		return "basic"
	}
}

// Side selects face culling.
type Side uint8

const (
	// SideFront renders front faces only.
	SideFront Side = iota

	// SideBack renders back faces only.
	SideBack

	// SideDouble disables culling.
	SideDouble
)

// Params are the material parameters that participate in the cache key.
type Params struct {
	// Color is the base color.
	Color color.RGBA

	// Opacity in [0,1]; only honored when Transparent is set.
	Opacity float64

	// Transparent enables alpha blending.
	Transparent bool

	// Side selects face culling.
	Side Side
}

// Key is the memoization key: shading model plus Params. Effect strength
// is excluded on purpose; see SetEffectStrength.
type Key struct {
	Shading Shading
	Params  Params
}

// String formats the key for logs.
func (k Key) String() string {
	return fmt.Sprintf("%s/#%02x%02x%02x%02x/op=%.2f/t=%v/side=%d",
		k.Shading, k.Params.Color.R, k.Params.Color.G, k.Params.Color.B,
		k.Params.Color.A, k.Params.Opacity, k.Params.Transparent, k.Params.Side)
}

// Material is a cached GPU material. It is created by the Cache and tagged
// with the GPU context epoch current at creation; a material whose epoch
// does not match the surface manager's must not be used.
type Material struct {
	key   Key
	epoch uint64

	mu             sync.Mutex
	effectStrength float64
	spirv          []uint32
	module         hal.ShaderModule
	device         hal.Device
	destroyed      bool
}

// Key returns the cache key this material was created under.
func (m *Material) Key() Key { return m.key }

// Epoch returns the GPU context epoch the material was created under.
func (m *Material) Epoch() uint64 { return m.epoch }

// Valid reports whether the material belongs to the given epoch. Renderers
// check this before binding; a mismatch means the material survived a
// context loss by mistake and must be dropped.
func (m *Material) Valid(epoch uint64) bool { return m.epoch == epoch }

// EffectStrength returns the current effect strength in [0,1].
func (m *Material) EffectStrength() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.effectStrength
}

// setEffectStrength is the in-place uniform update; it never changes the
// cache key or invalidates compiled shader state.
func (m *Material) setEffectStrength(v float64) {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	m.mu.Lock()
	m.effectStrength = v
	m.mu.Unlock()
}

// Module returns the shader module for this material, compiling the WGSL
// source and creating the module on first use. A nil device yields only
// the SPIR-V compilation (software fallback path keeps no module).
func (m *Material) Module(device hal.Device) (hal.ShaderModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return nil, fmt.Errorf("material: %s used after invalidation", m.key)
	}
	if m.module != nil {
		return m.module, nil
	}
	if m.spirv == nil {
		code, err := compileShader(m.key.Shading)
		if err != nil {
			return nil, err
		}
		m.spirv = code
	}
	if device == nil {
		return nil, nil
	}
	module, err := newShaderModule(device, m.key.String(), m.spirv)
	if err != nil {
		return nil, err
	}
	m.module = module
	m.device = device
	return module, nil
}

// destroy releases the shader module. Safe to call more than once.
func (m *Material) destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return
	}
	m.destroyed = true
	if m.module != nil && m.device != nil {
		m.device.DestroyShaderModule(m.module)
	}
	m.module = nil
	m.device = nil
	m.spirv = nil
}
