package gldevice

import (
	"unsafe"

	"mirage/internal/gpu"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/rotisserie/eris"
)

func createTexture(desc gpu.TextureDesc) (uint32, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return 0, eris.Errorf("texture %s has size %dx%d", desc.Label, desc.Width, desc.Height)
	}

	var texture uint32
	gl.GenTextures(1, &texture)
	gl.BindTexture(gl.TEXTURE_2D, texture)

	filter := int32(gl.LINEAR)
	if desc.Filter == gpu.FilterNearest {
		filter = gl.NEAREST
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)

	switch desc.Format {
	case gpu.FormatDepth24:
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24,
			int32(desc.Width), int32(desc.Height), 0,
			gl.DEPTH_COMPONENT, gl.UNSIGNED_INT, nil)
	default:
		if desc.Pixels != nil && len(desc.Pixels) != desc.Width*desc.Height*4 {
			gl.BindTexture(gl.TEXTURE_2D, 0)
			gl.DeleteTextures(1, &texture)
			return 0, eris.Errorf("texture %s: %d bytes for %dx%d RGBA", desc.Label, len(desc.Pixels), desc.Width, desc.Height)
		}
		var pixels unsafe.Pointer
		if len(desc.Pixels) > 0 {
			pixels = gl.Ptr(desc.Pixels)
		}
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8,
			int32(desc.Width), int32(desc.Height), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, pixels)
	}

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return texture, nil
}
