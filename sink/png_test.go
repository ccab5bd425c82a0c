package sink

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	smelter "github.com/one-click-studio/smelter-colors"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: byte(x * 16), G: byte(y * 16), B: 128, A: 255})
		}
	}
	return img
}

func TestWriteStillPNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	img := testImage(8, 6)
	if err := WriteStillPNG(path, img); err != nil {
		t.Fatalf("WriteStillPNG: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("decoded bounds = %v, want %v", decoded.Bounds(), img.Bounds())
	}
	got := decoded.At(3, 2)
	r, g, b, a := got.RGBA()
	if r>>8 != 48 || g>>8 != 32 || b>>8 != 128 || a>>8 != 255 {
		t.Errorf("pixel (3,2) = %v, want RGBA(48,32,128,255)", got)
	}

	// No temporary file is left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file still exists: %v", err)
	}
}

func TestWriteStillPNGDeterministic(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")

	img := testImage(16, 16)
	if err := WriteStillPNG(a, img); err != nil {
		t.Fatalf("WriteStillPNG a: %v", err)
	}
	if err := WriteStillPNG(b, img); err != nil {
		t.Fatalf("WriteStillPNG b: %v", err)
	}

	dataA, err := os.ReadFile(a)
	if err != nil {
		t.Fatalf("read a: %v", err)
	}
	dataB, err := os.ReadFile(b)
	if err != nil {
		t.Fatalf("read b: %v", err)
	}
	if !bytes.Equal(dataA, dataB) {
		t.Error("identical input produced different PNG bytes")
	}
}

func TestWriteStillPNGFailureWrapsCaptureFailed(t *testing.T) {
	// A path inside a directory that does not exist cannot be created.
	path := filepath.Join(t.TempDir(), "missing", "out.png")
	err := WriteStillPNG(path, testImage(4, 4))
	if err == nil {
		t.Fatal("WriteStillPNG into missing directory = nil, want error")
	}
	if !errors.Is(err, smelter.ErrCaptureFailed) {
		t.Errorf("err = %v, want ErrCaptureFailed in chain", err)
	}
}

func TestWriteStillPNGRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := WriteStillPNG(path, nil); err == nil {
		t.Error("WriteStillPNG(nil) = nil, want error")
	}
	if err := WriteStillPNG(path, &image.RGBA{}); err == nil {
		t.Error("WriteStillPNG(empty) = nil, want error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("rejected write still created a file")
	}
}

func TestImageFromRGBA(t *testing.T) {
	pix := make([]byte, 4*4*4)
	pix[0] = 200

	img, err := ImageFromRGBA(pix, 4, 4)
	if err != nil {
		t.Fatalf("ImageFromRGBA: %v", err)
	}
	if img.Stride != 16 {
		t.Errorf("stride = %d, want 16", img.Stride)
	}
	if img.Pix[0] != 200 {
		t.Error("ImageFromRGBA should wrap the buffer, not copy it")
	}

	if _, err := ImageFromRGBA(pix, 0, 4); err == nil {
		t.Error("ImageFromRGBA(w=0) = nil error")
	}
	if _, err := ImageFromRGBA(pix[:8], 4, 4); err == nil {
		t.Error("ImageFromRGBA(short buffer) = nil error")
	}
}
