package cv

import (
	"fmt"
	"image"

	"cvbridge/cvmod"
	"cvbridge/vision"
)

// opaque is the alpha written when a buffer has no alpha channel.
const opaque = 255

// BroadcastGray expands single-channel samples to RGBA, writing each value
// to R, G and B with an opaque alpha: [10, 200] becomes
// [10,10,10,255, 200,200,200,255].
func BroadcastGray(src []byte) []byte {
	out := make([]byte, len(src)*4)
	for i, v := range src {
		j := i * 4
		out[j], out[j+1], out[j+2], out[j+3] = v, v, v, opaque
	}
	return out
}

// ExtractChannel returns channel ch (0..3) of interleaved RGBA bytes.
// It inverts BroadcastGray exactly for any of the colour channels.
func ExtractChannel(rgba []byte, ch int) []byte {
	if ch < 0 || ch > 3 {
		return nil
	}
	out := make([]byte, len(rgba)/4)
	for i := range out {
		out[i] = rgba[i*4+ch]
	}
	return out
}

func expandRGB(src []byte) []byte {
	out := make([]byte, len(src)/3*4)
	for i, j := 0, 0; i+2 < len(src); i, j = i+3, j+4 {
		out[j], out[j+1], out[j+2], out[j+3] = src[i], src[i+1], src[i+2], opaque
	}
	return out
}

// ToImageData copies m into a new RGBA image. Single-channel 8-bit buffers
// are broadcast to gray pixels, 3-channel ones gain an opaque alpha, and
// 4-channel ones are copied byte for byte. Anything else returns
// ErrUnsupportedLayout.
func (m *Mat) ToImageData() (*image.NRGBA, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	t := m.handle.Type()
	if t.Depth() != cvmod.Depth8U {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayout, t)
	}
	data, err := m.handle.Bytes()
	if err != nil {
		return nil, err
	}

	var pix []byte
	switch t.Channels() {
	case 1:
		pix = BroadcastGray(data)
	case 3:
		pix = expandRGB(data)
	case 4:
		pix = data
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLayout, t)
	}

	rows, cols := m.handle.Rows(), m.handle.Cols()
	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	copy(img.Pix, pix)
	return img, nil
}

// FromImageData creates an owning 8-bit 4-channel buffer holding a byte for
// byte copy of img. The colour model is not interpreted.
func (rt *Runtime) FromImageData(img *image.NRGBA) (*Mat, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	rowBytes := w * 4
	var pix []byte
	if img.Stride == rowBytes && b.Min == (image.Point{}) {
		pix = img.Pix[:h*rowBytes]
	} else {
		pix = make([]byte, h*rowBytes)
		for y := 0; y < h; y++ {
			start := img.PixOffset(b.Min.X, b.Min.Y+y)
			copy(pix[y*rowBytes:], img.Pix[start:start+rowBytes])
		}
	}
	return rt.NewMatFromBytes(h, w, cvmod.CV8UC4, pix)
}

// FromImage creates an owning RGBA buffer from any Go image, normalising it
// to NRGBA first.
func (rt *Runtime) FromImage(img image.Image) (*Mat, error) {
	return rt.FromImageData(vision.ToNRGBA(img))
}

// FromImageData creates a buffer from img through the registered module.
func FromImageData(img *image.NRGBA) (*Mat, error) {
	rt, err := Default()
	if err != nil {
		return nil, err
	}
	return rt.FromImageData(img)
}

// FromImage creates a buffer from any Go image through the registered module.
func FromImage(img image.Image) (*Mat, error) {
	rt, err := Default()
	if err != nil {
		return nil, err
	}
	return rt.FromImage(img)
}
