package gocvmod

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"cvbridge/cvmod"
)

func TestToRGBASwapsToBGR(t *testing.T) {
	tests := []struct {
		name string
		in   cvmod.Scalar
		want color.RGBA
	}{
		{"channel order", cvmod.Scalar{10, 20, 30, 40}, color.RGBA{R: 30, G: 20, B: 10, A: 40}},
		{"saturates", cvmod.Scalar{-5, 300, 127.5, 255}, color.RGBA{R: 128, G: 255, B: 0, A: 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toRGBA(tt.in); got != tt.want {
				t.Errorf("toRGBA(%v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCheckRegion(t *testing.T) {
	tests := []struct {
		name    string
		r       cvmod.Rect
		want    image.Rectangle
		wantErr bool
	}{
		{"inside", cvmod.Rect{X: 1, Y: 2, Width: 3, Height: 4}, image.Rect(1, 2, 4, 6), false},
		{"whole buffer", cvmod.Rect{Width: 10, Height: 8}, image.Rect(0, 0, 10, 8), false},
		{"past right edge", cvmod.Rect{X: 8, Width: 3, Height: 1}, image.Rectangle{}, true},
		{"negative origin", cvmod.Rect{X: -1, Width: 2, Height: 2}, image.Rectangle{}, true},
		{"empty", cvmod.Rect{X: 1, Y: 1}, image.Rectangle{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checkRegion(8, 10, tt.r)
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Errorf("checkRegion() error = %v, want ErrOutOfRange", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("checkRegion() = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

func TestArea(t *testing.T) {
	reversed := []cvmod.Point{{X: 0, Y: 0}, {X: 0, Y: 4}, {X: 4, Y: 4}, {X: 4, Y: 0}}
	forward := []cvmod.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}

	if a := area(forward, false); a != 16 {
		t.Errorf("area(forward) = %v, want 16", a)
	}
	if a, b := area(forward, true), area(reversed, true); a != -b || a == 0 {
		t.Errorf("oriented areas = %v and %v, want opposite signs", a, b)
	}
	if a := area(forward[:2], true); a != 0 {
		t.Errorf("area of a segment = %v", a)
	}
}

func TestShift(t *testing.T) {
	in := [][]image.Point{{{X: 1, Y: 1}}, {{X: 0, Y: 0}, {X: 2, Y: 3}}}
	if got := shift(in, cvmod.Point{}); &got[0][0] != &in[0][0] {
		t.Error("zero offset should return the input")
	}
	got := shift(in, cvmod.Point{X: 5, Y: -1})
	if got[1][1] != image.Pt(7, 2) || in[1][1] != image.Pt(2, 3) {
		t.Errorf("shift() = %v, input now %v", got, in)
	}
}
