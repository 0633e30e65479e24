package output

import (
	"bufio"
	"fmt"
	"image"
	"io"

	"github.com/pkg/errors"

	"github.com/df07/go-diffuse-raytracer/pkg/renderer"
)

// WritePPM writes frame as a plain text (P3) PPM with linear quantization
func WritePPM(w io.Writer, frame renderer.Frame) error {
	return Encode(w, frame, Options{Format: FormatPPM, Gamma: GammaLinear})
}

// writePlainPPM writes "P3\n<w> <h>\n255\n" followed by one "r g b" line per pixel,
// top row first
func writePlainPPM(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "P3\n%d %d\n255\n", bounds.Dx(), bounds.Dy()); err != nil {
		return errors.Wrap(err, "writing ppm header")
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if _, err := fmt.Fprintf(bw, "%d %d %d\n", c.R, c.G, c.B); err != nil {
				return errors.Wrap(err, "writing ppm pixels")
			}
		}
	}
	return errors.Wrap(bw.Flush(), "flushing ppm")
}
