package material

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// shaderHeader declares the bindings shared by every shading model. The
// effect_strength uniform is the continuously tunable knob; updating it
// never requires recompilation.
const shaderHeader = `
struct Uniforms {
    mvp : mat4x4<f32>,
    color : vec4<f32>,
    light_dir : vec3<f32>,
    effect_strength : f32,
};
@group(0) @binding(0) var<uniform> u : Uniforms;

struct VertexOut {
    @builtin(position) position : vec4<f32>,
    @location(0) normal : vec3<f32>,
};

@vertex
fn vs_main(@location(0) pos : vec3<f32>, @location(1) normal : vec3<f32>) -> VertexOut {
    var out : VertexOut;
    out.position = u.mvp * vec4<f32>(pos, 1.0);
    out.normal = normal;
    return out;
}
`

const basicShader = shaderHeader + `
@fragment
fn fs_main(in : VertexOut) -> @location(0) vec4<f32> {
    return u.color;
}
`

const lambertShader = shaderHeader + `
@fragment
fn fs_main(in : VertexOut) -> @location(0) vec4<f32> {
    let n = normalize(in.normal);
    let diffuse = max(dot(n, normalize(u.light_dir)), 0.0);
    let lit = mix(1.0, 0.25 + 0.75 * diffuse, u.effect_strength);
    return vec4<f32>(u.color.rgb * lit, u.color.a);
}
`

const glossyShader = shaderHeader + `
@fragment
fn fs_main(in : VertexOut) -> @location(0) vec4<f32> {
    let n = normalize(in.normal);
    let l = normalize(u.light_dir);
    let diffuse = max(dot(n, l), 0.0);
    let h = normalize(l + vec3<f32>(0.0, 0.0, 1.0));
    let spec = pow(max(dot(n, h), 0.0), 32.0);
    let lit = 0.25 + 0.75 * diffuse;
    let rgb = u.color.rgb * lit + vec3<f32>(spec * u.effect_strength);
    return vec4<f32>(rgb, u.color.a);
}
`

const toonShader = shaderHeader + `
@fragment
fn fs_main(in : VertexOut) -> @location(0) vec4<f32> {
    let n = normalize(in.normal);
    let diffuse = max(dot(n, normalize(u.light_dir)), 0.0);
    let bands = mix(8.0, 3.0, u.effect_strength);
    let lit = floor(diffuse * bands) / bands;
    return vec4<f32>(u.color.rgb * (0.3 + 0.7 * lit), u.color.a);
}
`

// shaderSource returns the WGSL source for a shading model.
func shaderSource(s Shading) string {
	switch s {
	case ShadingLambert:
		return lambertShader
	case ShadingGlossy:
		return glossyShader
	case ShadingToon:
		return toonShader
	default:
		return basicShader
	}
}

// compileShader compiles the WGSL source of a shading model to SPIR-V
// words. SPIR-V is little-endian 32-bit words.
func compileShader(s Shading) ([]uint32, error) {
	spirvBytes, err := naga.Compile(shaderSource(s))
	if err != nil {
		return nil, fmt.Errorf("material: compile %s shader: %w", s, err)
	}
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// newShaderModule creates a HAL shader module from compiled SPIR-V.
func newShaderModule(device hal.Device, label string, code []uint32) (hal.ShaderModule, error) {
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: code,
		},
	})
}
