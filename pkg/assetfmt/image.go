package assetfmt

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered image format (png, jpeg, gif, bmp, tiff, webp) into RGBA8.
// When maxSize is positive, images larger than maxSize on either side are scaled down to fit.
func DecodeImage(data []byte, maxSize int) (*Image, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "failed to decode image")
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, eris.New("image is empty")
	}

	dstW, dstH := b.Dx(), b.Dy()
	if maxSize > 0 && (dstW > maxSize || dstH > maxSize) {
		if dstW >= dstH {
			dstH = max(1, dstH*maxSize/dstW)
			dstW = maxSize
		} else {
			dstW = max(1, dstW*maxSize/dstH)
			dstH = maxSize
		}
	}

	rgba := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	if dstW == b.Dx() && dstH == b.Dy() {
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), src, b, draw.Src, nil)
	}
	return &Image{Width: dstW, Height: dstH, Pixels: rgba.Pix, Format: format}, nil
}

// FromRGBA wraps an already rasterized image, copying it when its stride has padding.
func FromRGBA(img *image.RGBA) *Image {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 && img.Rect.Min == (image.Point{}) {
		return &Image{Width: w, Height: h, Pixels: img.Pix, Format: "rgba"}
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, img.Rect.Min, draw.Src)
	return &Image{Width: w, Height: h, Pixels: dst.Pix, Format: "rgba"}
}
