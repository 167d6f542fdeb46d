// Embedded WGSL compute shaders for the elementwise kernels.

package webgpu

import "fmt"

// workgroupSize is the number of threads per workgroup.
const workgroupSize = 256

// binaryShader builds an elementwise shader: result = a <op> b.
func binaryShader(op string) string {
	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] %s b[idx];
    }
}
`, op)
}

// binaryScalarShader builds an elementwise shader: result = a <op> s.
func binaryScalarShader(op string) string {
	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    size: u32,
    scalar: f32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        result[idx] = a[idx] %s params.scalar;
    }
}
`, op)
}

// inplaceShader builds an elementwise shader: dst = dst <op> b.
func inplaceShader(op string) string {
	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read_write> dst: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;

struct Params {
    size: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        dst[idx] = dst[idx] %s b[idx];
    }
}
`, op)
}

// inplaceScalarShader builds an elementwise shader: dst = dst <op> s.
func inplaceScalarShader(op string) string {
	return fmt.Sprintf(`
@group(0) @binding(0) var<storage, read_write> dst: array<f32>;

struct Params {
    size: u32,
    scalar: f32,
}
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        dst[idx] = dst[idx] %s params.scalar;
    }
}
`, op)
}

// fillShader sets every element of dst to the uniform scalar.
const fillShader = `
@group(0) @binding(0) var<storage, read_write> dst: array<f32>;

struct Params {
    size: u32,
    scalar: f32,
}
@group(0) @binding(1) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let idx = global_id.x;
    if (idx < params.size) {
        dst[idx] = params.scalar;
    }
}
`
