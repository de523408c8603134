package imaging

import (
	"fmt"
	"image"
	"slices"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Region is a rectangle in raster pixel coordinates. X2 and Y2 are exclusive.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Empty reports whether the region selects no pixels.
func (r Region) Empty() bool {
	return r.X1 >= r.X2 || r.Y1 >= r.Y2
}

func (r Region) String() string {
	return fmt.Sprintf("%d,%d,%d,%d", r.X1, r.Y1, r.X2, r.Y2)
}

// regionNames lists the named regions accepted by ParseRegion.
var regionNames = []string{
	"top-left", "top-right", "bottom-left", "bottom-right",
	"top-half", "bottom-half", "left-half", "right-half", "center",
	RegionAuto,
}

// RegionNames returns the named regions accepted by ParseRegion.
func RegionNames() []string {
	return slices.Clone(regionNames)
}

// ParseRegion parses either four comma-separated coordinates ("x1,y1,x2,y2")
// or a named region such as "top-half" or "center".
//
// Named regions are resolved against a raster by Crop, so the returned Region
// is zero and name is set. For coordinates, name is empty.
func ParseRegion(spec string) (region Region, name string, err error) {
	spec = strings.TrimSpace(spec)
	for _, n := range regionNames {
		if strings.EqualFold(spec, n) {
			return Region{}, n, nil
		}
	}

	parts := strings.Split(spec, ",")
	if len(parts) != 4 {
		return Region{}, "", fmt.Errorf("invalid region %q: want x1,y1,x2,y2 or one of %s",
			spec, strings.Join(regionNames, ", "))
	}
	var vals [4]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Region{}, "", fmt.Errorf("invalid region coordinate %q: %w", p, err)
		}
		vals[i] = v
	}
	region = Region{X1: vals[0], Y1: vals[1], X2: vals[2], Y2: vals[3]}
	if region.Empty() {
		return Region{}, "", fmt.Errorf("invalid region %s: x1 must be < x2, y1 must be < y2", region)
	}
	return region, "", nil
}

// Resolve turns a region name into coordinates for r. RegionAuto crops to
// the detected text area, or selects the whole raster when none is found.
func (r *Raster) Resolve(name string) (Region, error) {
	if r == nil || r.Image == nil {
		return Region{}, fmt.Errorf("empty raster")
	}
	if strings.EqualFold(name, RegionAuto) {
		if bounds, ok := TextBounds(r, DefaultTextConfidence, textPadding); ok {
			return bounds, nil
		}
		return Region{0, 0, r.Width, r.Height}, nil
	}
	return NamedRegion(name, r.Width, r.Height)
}

// NamedRegion resolves a region name against a width x height raster.
// RegionAuto depends on pixel content and is only handled by Raster.Resolve.
func NamedRegion(name string, width, height int) (Region, error) {
	midX, midY := width/2, height/2

	switch strings.ToLower(name) {
	case "top-left":
		return Region{0, 0, midX, midY}, nil
	case "top-right":
		return Region{midX, 0, width, midY}, nil
	case "bottom-left":
		return Region{0, midY, midX, height}, nil
	case "bottom-right":
		return Region{midX, midY, width, height}, nil
	case "top-half":
		return Region{0, 0, width, midY}, nil
	case "bottom-half":
		return Region{0, midY, width, height}, nil
	case "left-half":
		return Region{0, 0, midX, height}, nil
	case "right-half":
		return Region{midX, 0, width, height}, nil
	case "center":
		// Center 50% of the raster
		qW, qH := width/4, height/4
		return Region{qW, qH, width - qW, height - qH}, nil
	}
	return Region{}, fmt.Errorf("unknown region: %s", name)
}

// Crop returns a new raster holding only region of r. Coordinates are
// relative to the raster origin.
func (r *Raster) Crop(region Region) (*Raster, error) {
	if r == nil || r.Image == nil {
		return nil, fmt.Errorf("empty raster")
	}
	if region.Empty() {
		return nil, fmt.Errorf("invalid crop region %s: x1 must be < x2, y1 must be < y2", region)
	}
	if region.X1 < 0 || region.Y1 < 0 || region.X2 > r.Width || region.Y2 > r.Height {
		return nil, fmt.Errorf("crop region %s outside raster bounds 0,0,%d,%d", region, r.Width, r.Height)
	}

	origin := r.Image.Bounds().Min
	rect := image.Rect(region.X1, region.Y1, region.X2, region.Y2).Add(origin)
	out := newRaster(imaging.Crop(r.Image, rect), r.Format, r.Source)
	out.Page = r.Page
	return out, nil
}
