package imaging

import (
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// PreprocessOptions selects the preprocessing steps applied before OCR.
type PreprocessOptions struct {
	// Enabled turns preprocessing on. When false, Preprocess returns its input.
	Enabled bool `json:"enabled"`

	// Deskew straightens text lines tilted by up to MaxSkewDegrees.
	Deskew bool `json:"deskew"`

	// AdaptiveThreshold binarizes against a local Gaussian mean instead of a
	// single global Otsu level. Better for uneven lighting.
	AdaptiveThreshold bool `json:"adaptive_threshold"`
}

const (
	// MaxSkewDegrees is the largest tilt the deskew step searches for.
	MaxSkewDegrees = 10.0

	skewStep        = 0.5
	skewMinimum     = 0.1
	skewSampleWidth = 600

	denoiseRadius  = 1.0
	adaptiveRadius = 2.0
	adaptiveOffset = 2
)

// Preprocess returns a new grayscale raster prepared for recognition.
//
// Steps, in order:
//  1. Perceptual grayscale (CIE L* lightness)
//  2. Contrast stretch to the full 0-255 range
//  3. Gaussian denoise
//  4. Deskew (optional)
//  5. Binarization: adaptive Gaussian threshold or global Otsu
//
// The input raster is not modified. When opts.Enabled is false the input is
// returned as is.
func Preprocess(r *Raster, opts PreprocessOptions) *Raster {
	if r == nil || r.Image == nil || !opts.Enabled {
		return r
	}

	gray := Lightness(r.Image)
	stretchContrast(gray)
	gray = toGray(blur.Gaussian(gray, denoiseRadius))

	if opts.Deskew {
		if angle := EstimateSkew(gray); math.Abs(angle) > skewMinimum {
			gray = toGray(imaging.Rotate(gray, angle, color.White))
		}
	}

	var bin *image.Gray
	if opts.AdaptiveThreshold {
		bin = adaptiveThreshold(gray, adaptiveRadius, adaptiveOffset)
	} else {
		bin = segment.Threshold(gray, OtsuLevel(gray))
	}

	out := newRaster(bin, r.Format, r.Source)
	out.Page = r.Page
	return out
}

// Lightness converts img to grayscale using CIE L* lightness, which tracks
// perceived brightness more closely than an RGB average. Fully transparent
// pixels become white.
func Lightness(img image.Image) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				gray.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: 255})
				continue
			}
			l, _, _ := c.Lab()
			gray.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: clamp8(l * 255)})
		}
	}
	return gray
}

// stretchContrast rescales gray in place so its darkest pixel becomes 0 and
// its brightest 255.
func stretchContrast(gray *image.Gray) {
	lo, hi := uint8(255), uint8(0)
	for _, v := range gray.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi <= lo {
		return
	}
	span := float64(hi - lo)
	for i, v := range gray.Pix {
		gray.Pix[i] = clamp8(float64(v-lo) * 255 / span)
	}
}

// OtsuLevel returns the global threshold that maximizes the between-class
// variance of gray's histogram.
func OtsuLevel(gray *image.Gray) uint8 {
	var hist [256]int
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[gray.PixOffset(b.Min.X, y):gray.PixOffset(b.Max.X, y)]
		for _, v := range row {
			hist[v]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 128
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var (
		sumB, maxVar float64
		weightB      int
		level        uint8
	)
	for t := 0; t < 256; t++ {
		weightB += hist[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / float64(weightB)
		meanF := (sum - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if between > maxVar {
			maxVar = between
			level = uint8(t)
		}
	}
	// segment.Threshold keeps values >= level as white, so the background
	// class starts one above the last dark bin.
	if level < 255 {
		level++
	}
	return level
}

// adaptiveThreshold marks a pixel white when it is brighter than its local
// Gaussian-weighted mean minus offset.
func adaptiveThreshold(gray *image.Gray, radius float64, offset int) *image.Gray {
	mean := blur.Gaussian(gray, radius)
	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := int(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			m := int(mean.RGBAAt(x, y).R)
			if v > m-offset {
				out.Pix[out.PixOffset(x, y)] = 255
			}
		}
	}
	return out
}

// EstimateSkew returns the rotation, in degrees counter-clockwise, that best
// aligns the text lines of gray with the horizontal axis. The search covers
// ±MaxSkewDegrees in half-degree steps on a downscaled copy and scores each
// candidate by the variance of its dark-pixel row profile.
func EstimateSkew(gray *image.Gray) float64 {
	sample := image.Image(gray)
	if gray.Bounds().Dx() > skewSampleWidth {
		sample = imaging.Resize(gray, skewSampleWidth, 0, imaging.Box)
	}
	sampleGray := toGray(sample)
	level := OtsuLevel(sampleGray)

	best, bestScore := 0.0, -1.0
	for angle := -MaxSkewDegrees; angle <= MaxSkewDegrees; angle += skewStep {
		rotated := imaging.Rotate(sampleGray, angle, color.White)
		score := rowProfileVariance(rotated, level)
		// Prefer the smaller correction when scores tie.
		if score > bestScore || (score == bestScore && math.Abs(angle) < math.Abs(best)) {
			best, bestScore = angle, score
		}
	}
	return best
}

// rowProfileVariance counts dark pixels per row and returns the variance of
// those counts. Aligned text produces sharp peaks and gaps, hence high variance.
func rowProfileVariance(img *image.NRGBA, level uint8) float64 {
	b := img.Bounds()
	h := b.Dy()
	if h == 0 {
		return 0
	}

	counts := make([]float64, h)
	var mean float64
	for y := 0; y < h; y++ {
		n := 0
		for x := 0; x < b.Dx(); x++ {
			if img.NRGBAAt(b.Min.X+x, b.Min.Y+y).R < level {
				n++
			}
		}
		counts[y] = float64(n)
		mean += float64(n)
	}
	mean /= float64(h)

	var variance float64
	for _, c := range counts {
		variance += (c - mean) * (c - mean)
	}
	return variance / float64(h)
}

// toGray converts any image to an *image.Gray anchored at the origin.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return gray
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
