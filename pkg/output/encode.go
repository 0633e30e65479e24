// Package output quantizes rendered frames and writes them as image files.
package output

import (
	"bufio"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
)

// Format is an output image encoding
type Format string

const (
	// FormatPPM is plain text PPM (P3)
	FormatPPM = Format("ppm")
	// FormatPPMBinary is raw PPM (P6)
	FormatPPMBinary = Format("ppm-binary")
	// FormatPNG is PNG
	FormatPNG = Format("png")
	// FormatQOI is the "Quite OK Image" format
	FormatQOI = Format("qoi")
	// FormatBMP is Windows bitmap
	FormatBMP = Format("bmp")
	// FormatTIFF is uncompressed TIFF
	FormatTIFF = Format("tiff")
)

// Formats lists every supported encoding
var Formats = []Format{FormatPPM, FormatPPMBinary, FormatPNG, FormatQOI, FormatBMP, FormatTIFF}

// Options controls how a frame is turned into an image
type Options struct {
	Format Format
	Gamma  Gamma
	Scale  int // Nearest neighbor upscale factor; values below 2 keep the rendered size
}

// DefaultOptions returns plain PPM output with linear quantization
func DefaultOptions() Options {
	return Options{Format: FormatPPM, Gamma: GammaLinear, Scale: 1}
}

// ParseFormat parses a format name
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "tif":
		return FormatTIFF, nil
	case "p3":
		return FormatPPM, nil
	case "p6":
		return FormatPPMBinary, nil
	case FormatPPM, FormatPPMBinary, FormatPNG, FormatQOI, FormatBMP, FormatTIFF:
		return f, nil
	default:
		return "", errors.Errorf("unknown format %q (want one of %v)", name, Formats)
	}
}

// FormatFromPath picks the format from a file extension. ".ppm" is plain text.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.Errorf("cannot infer image format from %q", path)
	}
	return ParseFormat(ext)
}

// Extension returns the file extension for format, without the dot
func (f Format) Extension() string {
	switch f {
	case FormatPPMBinary:
		return "ppm"
	case "":
		return string(FormatPPM)
	default:
		return string(f)
	}
}

// ContentType returns the MIME type for format
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatQOI:
		return "image/qoi"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	default:
		return "image/x-portable-pixmap"
	}
}

// ToRGBA tone maps and quantizes frame into an opaque image, upscaled by opts.Scale
func ToRGBA(frame renderer.Frame, opts Options) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			c := ToneMap(frame.At(x, y), opts.Gamma)
			img.SetRGBA(x, y, color.RGBA{R: Quantize(c.X), G: Quantize(c.Y), B: Quantize(c.Z), A: 255})
		}
	}

	if opts.Scale < 2 || frame.Width == 0 || frame.Height == 0 {
		return img
	}
	scaled := imaging.Resize(img, frame.Width*opts.Scale, frame.Height*opts.Scale, imaging.NearestNeighbor)
	// Fully opaque, so NRGBA and RGBA share a pixel layout
	return &image.RGBA{Pix: scaled.Pix, Stride: scaled.Stride, Rect: scaled.Rect}
}

// Encode writes frame to w in opts.Format (plain PPM when unset)
func Encode(w io.Writer, frame renderer.Frame, opts Options) error {
	img := ToRGBA(frame, opts)

	var err error
	switch opts.Format {
	case FormatPPM, "":
		err = writePlainPPM(w, img)
	case FormatPPMBinary:
		err = ppm.Encode(w, img)
	case FormatPNG:
		err = png.Encode(w, img)
	case FormatQOI:
		err = qoi.Encode(w, img)
	case FormatBMP:
		err = bmp.Encode(w, img)
	case FormatTIFF:
		err = tiff.Encode(w, img, nil)
	default:
		return errors.Errorf("unknown format %q", opts.Format)
	}
	return errors.Wrapf(err, "encoding %s", opts.Format.Extension())
}

// WriteFile encodes frame into the file at path, creating parent directories.
// An unset opts.Format is inferred from the extension.
func WriteFile(path string, frame renderer.Frame, opts Options) (err error) {
	if opts.Format == "" {
		if opts.Format, err = FormatFromPath(path); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating directory %s", dir)
		}
	}

	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		err = multierr.Combine(err, errors.Wrapf(f.Close(), "closing %s", path))
	}()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, frame, opts); err != nil {
		return err
	}
	return errors.Wrapf(bw.Flush(), "writing %s", path)
}
