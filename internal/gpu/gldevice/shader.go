package gldevice

import (
	"strings"

	"mirage/internal/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rotisserie/eris"
)

// program is a linked shader program with its uniform locations resolved.
type program struct {
	id         uint32
	viewProj   int32
	model      int32
	color      int32
	texture    int32
	hasTexture int32

	ambient        int32
	lightCount     int32
	lightKind      int32
	lightPos       int32
	lightDir       int32
	lightColor     int32
	lightIntensity int32
	lightRange     int32
}

func (p *program) uniform(name string) int32 {
	return gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
}

func linkProgram(vertexSrc, fragmentSrc string) (*program, error) {
	vertexShader, err := compileShader(vertexSrc, gl.VERTEX_SHADER)
	if err != nil {
		return nil, eris.Wrap(err, "vertex shader")
	}
	fragmentShader, err := compileShader(fragmentSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return nil, eris.Wrap(err, "fragment shader")
	}
	defer gl.DeleteShader(vertexShader)
	defer gl.DeleteShader(fragmentShader)

	id := gl.CreateProgram()
	gl.AttachShader(id, vertexShader)
	gl.AttachShader(id, fragmentShader)
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)

		return nil, eris.Errorf("failed to link program: %s", strings.TrimRight(log, "\x00"))
	}

	p := &program{id: id}
	p.viewProj = p.uniform("uViewProj")
	p.model = p.uniform("uModel")
	p.color = p.uniform("uColor")
	p.texture = p.uniform("uTexture")
	p.hasTexture = p.uniform("uHasTexture")
	// Unlit programs lack these; GL ignores writes to location -1.
	p.ambient = p.uniform("uAmbient")
	p.lightCount = p.uniform("uLightCount")
	p.lightKind = p.uniform("uLightKind[0]")
	p.lightPos = p.uniform("uLightPos[0]")
	p.lightDir = p.uniform("uLightDir[0]")
	p.lightColor = p.uniform("uLightColor[0]")
	p.lightIntensity = p.uniform("uLightIntensity[0]")
	p.lightRange = p.uniform("uLightRange[0]")
	return p, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(strings.TrimSuffix(source, "\x00") + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, eris.Errorf("failed to compile shader: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

// setLights uploads a pass's lights as parallel uniform arrays.
func (p *program) setLights(ambient float32, lights []gpu.Light) {
	gl.Uniform1f(p.ambient, ambient)
	n := min(len(lights), gpu.MaxLights)
	gl.Uniform1i(p.lightCount, int32(n))
	if n == 0 {
		return
	}
	var (
		kinds       [gpu.MaxLights]int32
		pos, dir    [gpu.MaxLights]mgl32.Vec3
		color       [gpu.MaxLights]mgl32.Vec3
		intensity   [gpu.MaxLights]float32
		lightRanges [gpu.MaxLights]float32
	)
	for i, l := range lights[:n] {
		kinds[i] = int32(l.Kind)
		pos[i], dir[i], color[i] = l.Position, l.Direction, l.Color
		intensity[i], lightRanges[i] = l.Intensity, l.Range
	}
	gl.Uniform1iv(p.lightKind, int32(n), &kinds[0])
	gl.Uniform3fv(p.lightPos, int32(n), &pos[0][0])
	gl.Uniform3fv(p.lightDir, int32(n), &dir[0][0])
	gl.Uniform3fv(p.lightColor, int32(n), &color[0][0])
	gl.Uniform1fv(p.lightIntensity, int32(n), &intensity[0])
	gl.Uniform1fv(p.lightRange, int32(n), &lightRanges[0])
}
