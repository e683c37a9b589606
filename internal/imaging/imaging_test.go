package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{0, 0, 255, 255})
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestCanonicalMIME(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"image/jpeg", MIMEJPEG, true},
		{"image/jpg", MIMEJPEG, true},
		{"IMAGE/PNG", MIMEPNG, true},
		{"image/png; charset=binary", MIMEPNG, true},
		{"image/gif", "", false},
		{"image/webp", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := CanonicalMIME(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("CanonicalMIME(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestProcessSmallImageUnchanged(t *testing.T) {
	data := createTestPNG(50, 50)
	result, err := Process(data, "image/png")
	if err != nil {
		t.Fatalf("Process PNG: %v", err)
	}
	if result.MIME != MIMEPNG {
		t.Errorf("expected image/png, got %s", result.MIME)
	}
	if !bytes.Equal(result.Data, data) {
		t.Error("small image should be stored byte for byte")
	}
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("expected 50x50, got %dx%d", result.Width, result.Height)
	}
}

func TestProcessJPEGAlias(t *testing.T) {
	result, err := Process(createTestJPEG(100, 100), "image/jpg")
	if err != nil {
		t.Fatalf("Process JPEG: %v", err)
	}
	if result.MIME != MIMEJPEG {
		t.Errorf("expected image/jpeg, got %s", result.MIME)
	}
}

func TestProcessDownscaleKeepsFormat(t *testing.T) {
	data := createTestPNG(MaxDimension*2, MaxDimension/2)
	result, err := Process(data, "image/png")
	if err != nil {
		t.Fatalf("Process large image: %v", err)
	}
	if result.MIME != MIMEPNG {
		t.Errorf("expected PNG output for PNG input, got %s", result.MIME)
	}

	img, format, err := image.Decode(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if format != "png" {
		t.Errorf("expected png encoding, got %s", format)
	}
	bounds := img.Bounds()
	if bounds.Dx() != MaxDimension || bounds.Dy() != MaxDimension/4 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/4, bounds.Dx(), bounds.Dy())
	}
}

func TestProcessDeclaredTypeMismatch(t *testing.T) {
	_, err := Process(createTestPNG(10, 10), "image/jpeg")
	if err == nil {
		t.Error("expected error when PNG bytes are declared as JPEG")
	}
}

func TestProcessInvalidFormat(t *testing.T) {
	_, err := Process([]byte("not an image"), "image/png")
	if err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestProcessGIFRejected(t *testing.T) {
	_, err := Process([]byte("GIF89a..."), "image/gif")
	if err == nil {
		t.Error("expected error for GIF")
	}
}
