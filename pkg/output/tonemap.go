package output

import (
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/df07/go-diffuse-raytracer/pkg/core"
)

// Gamma selects the transfer curve applied to linear colors before quantization
type Gamma string

const (
	// GammaLinear writes linear values unchanged
	GammaLinear = Gamma("linear")
	// GammaSquareRoot applies gamma 2, the square root of each channel
	GammaSquareRoot = Gamma("gamma2")
	// GammaSRGB applies the piecewise sRGB curve
	GammaSRGB = Gamma("srgb")
)

// Gammas lists every supported transfer curve
var Gammas = []Gamma{GammaLinear, GammaSquareRoot, GammaSRGB}

// ParseGamma parses a gamma name; the empty string is linear
func ParseGamma(name string) (Gamma, error) {
	switch g := Gamma(strings.ToLower(name)); g {
	case "":
		return GammaLinear, nil
	case GammaLinear, GammaSquareRoot, GammaSRGB:
		return g, nil
	default:
		return "", errors.Errorf("unknown gamma %q (want one of %v)", name, Gammas)
	}
}

// intensity is the byte range colors are quantized into
var intensity = core.NewInterval(0, 255)

// Quantize maps a [0,1] channel value to a byte; out of range values saturate
func Quantize(c float64) byte {
	return byte(intensity.Clamp(255.999 * c))
}

// ToneMap applies gamma to a linear color
func ToneMap(c core.Color, gamma Gamma) core.Color {
	switch gamma {
	case GammaSquareRoot:
		return core.NewVec3(linearToGamma(c.X), linearToGamma(c.Y), linearToGamma(c.Z))
	case GammaSRGB:
		unit := core.NewInterval(0, 1)
		srgb := colorful.LinearRgb(unit.Clamp(c.X), unit.Clamp(c.Y), unit.Clamp(c.Z))
		return core.NewVec3(srgb.R, srgb.G, srgb.B)
	default:
		return c
	}
}

func linearToGamma(linear float64) float64 {
	if linear > 0 {
		return math.Sqrt(linear)
	}
	return 0
}
