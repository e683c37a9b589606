package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"
)

// MaxUploadSize is the largest accepted image upload, in bytes.
const MaxUploadSize = 5 << 20

// MaxDimension is the maximum width or height for stored images.
const MaxDimension = 2048

// JPEGQuality is the compression quality for re-encoded JPEGs.
const JPEGQuality = 85

// MIME types accepted for upload.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

// mimeAliases maps accepted declared content types to their canonical form.
var mimeAliases = map[string]string{
	MIMEJPEG:    MIMEJPEG,
	"image/jpg": MIMEJPEG,
	MIMEPNG:     MIMEPNG,
}

// CanonicalMIME returns the canonical form of a declared content type and
// whether it is accepted. Parameters such as charset are ignored.
func CanonicalMIME(contentType string) (string, bool) {
	ct, _, _ := strings.Cut(contentType, ";")
	canonical, ok := mimeAliases[strings.ToLower(strings.TrimSpace(ct))]
	return canonical, ok
}

// ProcessResult contains the processed image data.
type ProcessResult struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process checks that data really is an image of the declared type by
// sniffing and decoding it, and downscales it if either side exceeds
// MaxDimension. The output keeps the input format; images already within
// bounds are returned byte for byte.
func Process(data []byte, declared string) (*ProcessResult, error) {
	want, ok := CanonicalMIME(declared)
	if !ok {
		return nil, fmt.Errorf("unsupported image type: %s (only JPEG and PNG accepted)", declared)
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	if detected != want {
		return nil, fmt.Errorf("image content is %s, declared %s", detected, want)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= MaxDimension && bounds.Dy() <= MaxDimension {
		return &ProcessResult{Data: data, MIME: want, Width: bounds.Dx(), Height: bounds.Dy()}, nil
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	switch want {
	case MIMEPNG:
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", want, err)
	}

	b := img.Bounds()
	return &ProcessResult{Data: buf.Bytes(), MIME: want, Width: b.Dx(), Height: b.Dy()}, nil
}

// downscale resizes the image so neither dimension exceeds maxDim.
// Uses high-quality Catmull-Rom interpolation.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	// Calculate new dimensions preserving aspect ratio.
	newW, newH := w, h
	if w > h {
		newW = maxDim
		newH = int(float64(h) * float64(maxDim) / float64(w))
	} else {
		newH = maxDim
		newW = int(float64(w) * float64(maxDim) / float64(h))
	}

	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	// Register decoders (jpeg is registered by default, but be explicit).
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
