package gpu

// Builtin shader programs, GLSL 4.10 core. Vertex layout matches VertexStride.

const litVertex = `#version 410 core
layout(location = 0) in vec3 aPos;
layout(location = 1) in vec3 aNormal;
layout(location = 2) in vec2 aUV;
uniform mat4 uViewProj;
uniform mat4 uModel;
out vec3 vWorld;
out vec3 vNormal;
out vec2 vUV;
void main() {
	vec4 world = uModel * vec4(aPos, 1.0);
	vWorld = world.xyz;
	vNormal = mat3(transpose(inverse(uModel))) * aNormal;
	vUV = aUV;
	gl_Position = uViewProj * world;
}
` + "\x00"

// Light uniforms are parallel arrays indexed up to uLightCount; see Light.
const litFragment = `#version 410 core
const int MAX_LIGHTS = 8;
in vec3 vWorld;
in vec3 vNormal;
in vec2 vUV;
uniform vec4 uColor;
uniform sampler2D uTexture;
uniform bool uHasTexture;
uniform float uAmbient;
uniform int uLightCount;
uniform int uLightKind[MAX_LIGHTS];
uniform vec3 uLightPos[MAX_LIGHTS];
uniform vec3 uLightDir[MAX_LIGHTS];
uniform vec3 uLightColor[MAX_LIGHTS];
uniform float uLightIntensity[MAX_LIGHTS];
uniform float uLightRange[MAX_LIGHTS];
out vec4 fragColor;
void main() {
	vec3 n = normalize(vNormal);
	vec3 lit = vec3(uAmbient);
	for (int i = 0; i < uLightCount && i < MAX_LIGHTS; i++) {
		vec3 l;
		float attenuation = 1.0;
		if (uLightKind[i] == 1) {
			vec3 toLight = uLightPos[i] - vWorld;
			float d = length(toLight);
			l = toLight / max(d, 1e-4);
			if (uLightRange[i] > 0.0) {
				float f = clamp(1.0 - d / uLightRange[i], 0.0, 1.0);
				attenuation = f * f;
			}
		} else {
			l = normalize(-uLightDir[i]);
		}
		lit += uLightColor[i] * uLightIntensity[i] * attenuation * max(dot(n, l), 0.0);
	}
	vec4 base = uColor;
	if (uHasTexture) {
		base *= texture(uTexture, vUV);
	}
	fragColor = vec4(base.rgb * lit, base.a);
}
` + "\x00"

const unlitFragment = `#version 410 core
in vec3 vNormal;
in vec2 vUV;
uniform vec4 uColor;
uniform sampler2D uTexture;
uniform bool uHasTexture;
out vec4 fragColor;
void main() {
	vec4 base = uColor;
	if (uHasTexture) {
		base *= texture(uTexture, vUV);
	}
	fragColor = base;
}
` + "\x00"

// BuiltinPipeline returns the pipeline named shader configured for blend.
// Known shaders are "lit", "unlit" and "overlay".
func BuiltinPipeline(shader string, blend BlendMode) (PipelineDesc, bool) {
	desc := PipelineDesc{
		Label:        shader,
		VertexSource: litVertex,
		Blend:        blend,
		DepthTest:    true,
		DepthWrite:   blend == BlendOpaque,
	}
	switch shader {
	case "lit", "":
		desc.Label = "lit"
		desc.FragmentSource = litFragment
	case "unlit":
		desc.FragmentSource = unlitFragment
	case "overlay":
		desc.FragmentSource = unlitFragment
		desc.DepthTest = false
		desc.DepthWrite = false
	default:
		return PipelineDesc{}, false
	}
	return desc, true
}
