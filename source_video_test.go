package smelter

import (
	"bytes"
	"testing"
)

func TestCoverSize(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		dstW, dstH   int
		wantW, wantH int
	}{
		{"matching aspect", 1920, 1080, 1920, 1080, 1920, 1080},
		{"upscale matching aspect", 960, 540, 1920, 1080, 1920, 1080},
		{"wider source overflows width", 200, 100, 100, 100, 200, 100},
		{"taller source overflows height", 100, 200, 100, 100, 100, 200},
		{"rounds up so output is covered", 1279, 720, 1920, 1080, 1920, 1081},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := coverSize(tt.srcW, tt.srcH, tt.dstW, tt.dstH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("coverSize = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
			if w < tt.dstW || h < tt.dstH {
				t.Errorf("coverSize = %dx%d does not cover %dx%d", w, h, tt.dstW, tt.dstH)
			}
		})
	}
}

func TestCropCenter(t *testing.T) {
	// 4x4 source with each pixel's bytes set to its pixel index.
	src := make([]byte, 4*4*4)
	for i := 0; i < 16; i++ {
		for c := 0; c < 4; c++ {
			src[i*4+c] = byte(i)
		}
	}

	// The centered 2x2 window covers pixels 5, 6, 9, 10.
	got := cropCenter(src, 4, 4, 2, 2)
	want := []byte{
		5, 5, 5, 5, 6, 6, 6, 6,
		9, 9, 9, 9, 10, 10, 10, 10,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("cropCenter = %v, want %v", got, want)
	}
}

func TestCropCenterFullWindow(t *testing.T) {
	src := make([]byte, 3*2*4)
	for i := range src {
		src[i] = byte(i)
	}
	got := cropCenter(src, 3, 2, 3, 2)
	if !bytes.Equal(got, src) {
		t.Error("full-window crop should copy the source unchanged")
	}
	// The crop must be a detached copy, not an alias.
	got[0]++
	if got[0] == src[0] {
		t.Error("cropCenter aliases the source buffer")
	}
}
