package cv

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"cvbridge/cvmod"
)

func TestBroadcastGray(t *testing.T) {
	got := BroadcastGray([]byte{10, 200})
	want := []byte{10, 10, 10, 255, 200, 200, 200, 255}
	if !bytes.Equal(got, want) {
		t.Errorf("BroadcastGray([10 200]) = %v, want %v", got, want)
	}

	if got := BroadcastGray(nil); len(got) != 0 {
		t.Errorf("BroadcastGray(nil) = %v, want empty", got)
	}
}

func TestExtractChannel_InvertsBroadcast(t *testing.T) {
	src := make([]byte, 256)
	for i := range src {
		src[i] = byte(i)
	}
	rgba := BroadcastGray(src)

	for ch := 0; ch < 3; ch++ {
		if got := ExtractChannel(rgba, ch); !bytes.Equal(got, src) {
			t.Errorf("ExtractChannel(ch=%d) did not reproduce the source", ch)
		}
	}
	if got := ExtractChannel(rgba, 4); got != nil {
		t.Errorf("ExtractChannel(ch=4) = %v, want nil", got)
	}
}

func TestToImageData_Layouts(t *testing.T) {
	rt, _ := newTestRuntime(t)

	tests := []struct {
		name    string
		typ     cvmod.MatType
		data    []byte
		want    []byte
		wantErr error
	}{
		{
			name: "gray broadcast",
			typ:  cvmod.CV8UC1,
			data: []byte{10, 200},
			want: []byte{10, 10, 10, 255, 200, 200, 200, 255},
		},
		{
			name: "rgb gains alpha",
			typ:  cvmod.CV8UC3,
			data: []byte{1, 2, 3, 4, 5, 6},
			want: []byte{1, 2, 3, 255, 4, 5, 6, 255},
		},
		{
			name: "rgba byte copy",
			typ:  cvmod.CV8UC4,
			data: []byte{1, 2, 3, 4, 5, 6, 7, 8},
			want: []byte{1, 2, 3, 4, 5, 6, 7, 8},
		},
		{
			name:    "two channels unsupported",
			typ:     cvmod.CV8UC2,
			data:    []byte{1, 2, 3, 4},
			wantErr: ErrUnsupportedLayout,
		},
		{
			name:    "float unsupported",
			typ:     cvmod.CV32FC1,
			data:    make([]byte, 8),
			wantErr: ErrUnsupportedLayout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustMat(t)(rt.NewMatFromBytes(1, 2, tt.typ, tt.data))
			img, err := m.ToImageData()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ToImageData() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ToImageData() error: %v", err)
			}
			if img.Bounds() != image.Rect(0, 0, 2, 1) {
				t.Errorf("bounds = %v, want 2x1", img.Bounds())
			}
			if !bytes.Equal(img.Pix, tt.want) {
				t.Errorf("pixels = %v, want %v", img.Pix, tt.want)
			}
		})
	}
}

func TestGrayRoundTripIsLossless(t *testing.T) {
	rt, mod := newTestRuntime(t)

	src := make([]float64, 16*16)
	for i := range src {
		src[i] = float64(i % 256)
	}
	gray := mustMat(t)(rt.NewMatFromArray(16, 16, cvmod.CV8UC1, src))

	rgba, err := rt.FromImageData(mustImage(t, gray))
	if err != nil {
		t.Fatalf("FromImageData() error: %v", err)
	}
	defer rgba.Release()

	back := mustMat(t)(rt.NewMat(0, 0, cvmod.CV8UC1))
	if err := mod.CvtColor(rgba.Handle(), back.Handle(), rt.Code(ColorRGBA2Gray)); err != nil {
		t.Fatalf("CvtColor() error: %v", err)
	}

	want, _ := gray.Data()
	got, _ := back.Data()
	if !bytes.Equal(got, want) {
		t.Error("gray -> RGBA -> gray changed values")
	}
}

func mustImage(t *testing.T, m *Mat) *image.NRGBA {
	t.Helper()
	img, err := m.ToImageData()
	if err != nil {
		t.Fatalf("ToImageData() error: %v", err)
	}
	return img
}

func TestFromImageData_ByteCopy(t *testing.T) {
	rt, _ := newTestRuntime(t)

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})
	img.SetNRGBA(1, 1, color.NRGBA{250, 251, 252, 0})

	m := mustMat(t)(rt.FromImageData(img))
	if m.Type() != cvmod.CV8UC4 || m.Rows() != 2 || m.Cols() != 2 {
		t.Fatalf("FromImageData() = %s", m)
	}
	data, _ := m.Data()
	if !bytes.Equal(data, img.Pix) {
		t.Errorf("data = %v, want %v", data, img.Pix)
	}

	// Alpha 0 survives untouched in both directions.
	out := mustImage(t, m)
	if !bytes.Equal(out.Pix, img.Pix) {
		t.Errorf("round trip = %v, want %v", out.Pix, img.Pix)
	}
}

func TestFromImageData_SubImage(t *testing.T) {
	rt, _ := newTestRuntime(t)

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(2, 2, color.NRGBA{9, 8, 7, 6})
	sub := img.SubImage(image.Rect(2, 2, 4, 3)).(*image.NRGBA)

	m := mustMat(t)(rt.FromImageData(sub))
	if m.Rows() != 1 || m.Cols() != 2 {
		t.Fatalf("FromImageData(sub) = %s, want 1x2", m)
	}
	data, _ := m.Data()
	if !bytes.Equal(data[:4], []byte{9, 8, 7, 6}) {
		t.Errorf("first pixel = %v, want [9 8 7 6]", data[:4])
	}
}

func TestFromImage_Gray(t *testing.T) {
	rt, _ := newTestRuntime(t)

	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 42})

	m := mustMat(t)(rt.FromImage(img))
	data, _ := m.Data()
	if !bytes.Equal(data[:4], []byte{42, 42, 42, 255}) {
		t.Errorf("first pixel = %v, want [42 42 42 255]", data[:4])
	}
}
