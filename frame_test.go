package smelter

import (
	"errors"
	"testing"
)

func TestPixelFormatString(t *testing.T) {
	tests := []struct {
		format PixelFormat
		want   string
	}{
		{PixelFormatRGBA8, "RGBA8"},
		{PixelFormatBGRA8, "BGRA8"},
		{PixelFormat(99), "Unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.format.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPixelFormatBytesPerPixel(t *testing.T) {
	if got := PixelFormatRGBA8.BytesPerPixel(); got != 4 {
		t.Errorf("RGBA8 BytesPerPixel() = %d, want 4", got)
	}
	if got := PixelFormatBGRA8.BytesPerPixel(); got != 4 {
		t.Errorf("BGRA8 BytesPerPixel() = %d, want 4", got)
	}
	if got := PixelFormat(99).BytesPerPixel(); got != 0 {
		t.Errorf("unknown BytesPerPixel() = %d, want 0", got)
	}
}

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		valid bool
	}{
		{
			name:  "valid 2x2",
			frame: Frame{Pix: make([]byte, 16), Width: 2, Height: 2, Format: PixelFormatRGBA8},
			valid: true,
		},
		{
			name:  "oversized buffer is allowed",
			frame: Frame{Pix: make([]byte, 32), Width: 2, Height: 2, Format: PixelFormatRGBA8},
			valid: true,
		},
		{
			name:  "zero width",
			frame: Frame{Pix: make([]byte, 16), Width: 0, Height: 2, Format: PixelFormatRGBA8},
			valid: false,
		},
		{
			name:  "zero height",
			frame: Frame{Pix: make([]byte, 16), Width: 2, Height: 0, Format: PixelFormatRGBA8},
			valid: false,
		},
		{
			name:  "negative width",
			frame: Frame{Pix: make([]byte, 16), Width: -1, Height: 2, Format: PixelFormatRGBA8},
			valid: false,
		},
		{
			name:  "short buffer",
			frame: Frame{Pix: make([]byte, 15), Width: 2, Height: 2, Format: PixelFormatRGBA8},
			valid: false,
		},
		{
			name:  "nil buffer",
			frame: Frame{Width: 2, Height: 2, Format: PixelFormatRGBA8},
			valid: false,
		},
		{
			name:  "unknown format",
			frame: Frame{Pix: make([]byte, 16), Width: 2, Height: 2, Format: PixelFormat(99)},
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.valid && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.valid {
				if err == nil {
					t.Fatal("Validate() = nil, want error")
				}
				if !errors.Is(err, ErrInvalidSource) {
					t.Errorf("Validate() = %v, want ErrInvalidSource", err)
				}
			}
		})
	}
}
