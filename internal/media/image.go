// Package media normalises uploaded item photos: it decodes any common
// format (HEIC where the build supports it), applies EXIF orientation and
// re-encodes JPEG variants for the menu.
package media

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	FullMaxSide  = 1600
	ThumbSize    = 300
	fullQuality  = 90
	thumbQuality = 80

	// SmallImageWidth is the width under which uploads get a quality warning.
	SmallImageWidth = 800
)

var ErrUnsupportedImage = errors.New("unsupported image type")

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/heic": true,
	"image/heif": true,
}

func AllowedContentType(contentType string) bool {
	return allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// DetectContentType sniffs the first 512 bytes.
func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	if isHeifFamily(data) {
		return "image/heic"
	}
	return http.DetectContentType(data[:min(len(data), 512)])
}

// ItemImage holds the encoded variants of one upload.
type ItemImage struct {
	Full   []byte
	Thumb  []byte
	Width  int
	Height int
	Format string
}

// ProcessItemImage produces a full-size JPEG bounded by FullMaxSide and a
// square ThumbSize thumbnail.
func ProcessItemImage(data []byte) (ItemImage, error) {
	img, format, err := decode(data)
	if err != nil {
		return ItemImage{}, err
	}
	b := img.Bounds()
	out := ItemImage{Width: b.Dx(), Height: b.Dy(), Format: format}

	full := img
	if out.Width > FullMaxSide || out.Height > FullMaxSide {
		full = imaging.Fit(img, FullMaxSide, FullMaxSide, imaging.Lanczos)
	}
	if out.Full, err = encodeJPEG(full, fullQuality); err != nil {
		return ItemImage{}, err
	}
	thumb := imaging.Fill(img, ThumbSize, ThumbSize, imaging.Center, imaging.Lanczos)
	if out.Thumb, err = encodeJPEG(thumb, thumbQuality); err != nil {
		return ItemImage{}, err
	}
	return out, nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// isHeifFamily checks the ISO BMFF ftyp brand.
func isHeifFamily(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1", "heif":
		return true
	}
	return false
}

var orientations = map[int]func(image.Image) *image.NRGBA{
	2: imaging.FlipH,
	3: imaging.Rotate180,
	4: imaging.FlipV,
	5: imaging.Transpose,
	6: imaging.Rotate270,
	7: imaging.Transverse,
	8: imaging.Rotate90,
}

func decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if isHeifFamily(data) {
			heic, heicErr := decodeHEIC(data)
			if heicErr != nil {
				return nil, "", errors.Join(ErrUnsupportedImage, heicErr)
			}
			return heic, "heic", nil
		}
		return nil, "", errors.Join(ErrUnsupportedImage, err)
	}
	if format != "jpeg" {
		return img, format, nil
	}

	// EXIF is best effort; a missing or broken block leaves the image as is.
	ex, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return img, format, nil
	}
	tag, err := ex.Get(exif.Orientation)
	if err != nil {
		return img, format, nil
	}
	orient, err := tag.Int(0)
	if err != nil {
		return img, format, nil
	}
	if fix, ok := orientations[orient]; ok {
		img = fix(img)
	}
	return img, format, nil
}
