// Package media validates and normalizes post images before they are uploaded.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"feedsync/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMaxUploadSizeMB = 10
	DefaultMaxDimension    = 2048
	WebPQuality            = 70
	OutputContentType      = "image/webp"
)

// Options bound what Prepare accepts.
type Options struct {
	MaxUploadSizeMB int
	MaxDimension    int
}

// Input is a raw image picked by the user.
type Input struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Prepared is an image ready for the storage service.
type Prepared struct {
	Filename    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	// SourceFormat is the decoded input format (jpeg, png, gif, webp).
	SourceFormat string
}

// Prepare validates in and re-encodes it as WebP, downscaled to fit MaxDimension.
func Prepare(in Input, opts Options) (*Prepared, error) {
	maxMB := opts.MaxUploadSizeMB
	if maxMB <= 0 {
		maxMB = DefaultMaxUploadSizeMB
	}
	maxDim := opts.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	if len(in.Content) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > int64(maxMB)*1024*1024 {
		return nil, models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", maxMB))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return nil, models.NewValidationError("Unsupported image format")
	}

	sourceMimeType := decodedFormatToMime(format)
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") && !isMatchingContentType(provided, sourceMimeType) {
		return nil, models.NewValidationError("Image content type mismatch")
	}

	resized := ResizeToFit(decoded, maxDim, maxDim)
	data, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	b := resized.Bounds()
	return &Prepared{
		Filename:     webpFilename(in.Filename),
		ContentType:  OutputContentType,
		Data:         data,
		Width:        b.Dx(),
		Height:       b.Dy(),
		SourceFormat: format,
	}, nil
}

// ResizeToFit scales src down to fit maxWidth x maxHeight, keeping its aspect ratio.
// Images already inside the bounds are returned unchanged.
func ResizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func webpFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	return base + ".webp"
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	return decodedFormatToMime(format) != ""
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}
