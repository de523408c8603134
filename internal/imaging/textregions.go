package imaging

import (
	"image"
	"math"
	"sort"
)

// RegionAuto is the region name that crops to the detected text area.
const RegionAuto = "auto"

// DefaultTextConfidence is the minimum window score used by the "auto" region.
const DefaultTextConfidence = 0.3

// textPadding is the margin kept around the "auto" region.
const textPadding = 8

// edgeThreshold is the gray-level step between neighbours that counts as an edge.
const edgeThreshold = 30

// TextRegion is an area likely to hold text.
type TextRegion struct {
	Region     Region  `json:"region"`
	Confidence float64 `json:"confidence"`
}

// textWindows are the sliding window sizes, roughly one text line each.
var textWindows = []struct{ w, h int }{
	{100, 30},
	{150, 40},
	{200, 50},
	{80, 25},
}

// DetectTextRegions finds areas of r likely to contain text.
//
// Windows of several line-sized shapes slide over an edge map. A window is
// kept when its edge density is moderate (5-40%) and its edges form more
// horizontal runs than vertical ones, as printed lines do. Overlapping
// windows are merged. Results are sorted by confidence, highest first.
func DetectTextRegions(r *Raster, minConfidence float64) []TextRegion {
	if r == nil || r.Image == nil {
		return nil
	}
	edges := edgeMap(toGray(r.Image))
	width, height := r.Width, r.Height
	sums := integralCounts(edges, width, height)

	var candidates []TextRegion
	for _, ws := range textWindows {
		stepX, stepY := ws.w/2, ws.h/2
		for y := 0; y+ws.h <= height; y += stepY {
			for x := 0; x+ws.w <= width; x += stepX {
				count := sums.count(x, y, x+ws.w, y+ws.h)
				density := float64(count) / float64(ws.w*ws.h)
				if density < 0.05 || density > 0.4 {
					continue
				}
				score := horizontalScore(edges, width, x, y, ws.w, ws.h)
				confidence := score * (1 - math.Abs(density-0.2)/0.2)
				if confidence < minConfidence {
					continue
				}
				candidates = append(candidates, TextRegion{
					Region:     Region{X1: x, Y1: y, X2: x + ws.w, Y2: y + ws.h},
					Confidence: math.Round(confidence*1000) / 1000,
				})
			}
		}
	}

	merged := mergeTextRegions(candidates)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Confidence > merged[j].Confidence
	})
	return merged
}

// TextBounds returns the union of the detected text regions, grown by
// padding and clipped to the raster. ok is false when no text was found.
func TextBounds(r *Raster, minConfidence float64, padding int) (bounds Region, ok bool) {
	regions := DetectTextRegions(r, minConfidence)
	if len(regions) == 0 {
		return Region{}, false
	}
	bounds = regions[0].Region
	for _, tr := range regions[1:] {
		bounds = unionRegion(bounds, tr.Region)
	}
	bounds = Region{
		X1: max(bounds.X1-padding, 0),
		Y1: max(bounds.Y1-padding, 0),
		X2: min(bounds.X2+padding, r.Width),
		Y2: min(bounds.Y2+padding, r.Height),
	}
	return bounds, !bounds.Empty()
}

// edgeMap marks pixels whose right or lower neighbour differs by more than
// edgeThreshold. The outermost pixel ring is never an edge.
func edgeMap(gray *image.Gray) []bool {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	edges := make([]bool, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := int(gray.GrayAt(x, y).Y)
			dx := abs(c - int(gray.GrayAt(x+1, y).Y))
			dy := abs(c - int(gray.GrayAt(x, y+1).Y))
			if dx > edgeThreshold || dy > edgeThreshold {
				edges[y*w+x] = true
			}
		}
	}
	return edges
}

// integral is a summed-area table of edge pixels, one row and column larger
// than the edge map.
type integral struct {
	stride int
	sums   []int
}

func integralCounts(edges []bool, w, h int) integral {
	t := integral{stride: w + 1, sums: make([]int, (w+1)*(h+1))}
	for y := 0; y < h; y++ {
		row := 0
		for x := 0; x < w; x++ {
			if edges[y*w+x] {
				row++
			}
			t.sums[(y+1)*t.stride+x+1] = t.sums[y*t.stride+x+1] + row
		}
	}
	return t
}

// count returns the number of edge pixels in [x1,x2) x [y1,y2).
func (t integral) count(x1, y1, x2, y2 int) int {
	s := t.stride
	return t.sums[y2*s+x2] - t.sums[y1*s+x2] - t.sums[y2*s+x1] + t.sums[y1*s+x1]
}

// horizontalScore is the share of edge runs inside the window that run along
// rows rather than columns.
func horizontalScore(edges []bool, stride, x, y, w, h int) float64 {
	horizontal, vertical := 0, 0

	for row := y; row < y+h; row++ {
		inRun := false
		for col := x; col < x+w; col++ {
			if edges[row*stride+col] {
				if !inRun {
					horizontal++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	for col := x; col < x+w; col++ {
		inRun := false
		for row := y; row < y+h; row++ {
			if edges[row*stride+col] {
				if !inRun {
					vertical++
					inRun = true
				}
			} else {
				inRun = false
			}
		}
	}

	if horizontal+vertical == 0 {
		return 0
	}
	return float64(horizontal) / float64(horizontal+vertical)
}

// mergeTextRegions folds each candidate into the first kept region it
// overlaps, keeping the higher confidence.
func mergeTextRegions(regions []TextRegion) []TextRegion {
	var merged []TextRegion
	for _, r := range regions {
		folded := false
		for i := range merged {
			if overlaps(r.Region, merged[i].Region) {
				merged[i].Region = unionRegion(r.Region, merged[i].Region)
				merged[i].Confidence = math.Max(r.Confidence, merged[i].Confidence)
				folded = true
				break
			}
		}
		if !folded {
			merged = append(merged, r)
		}
	}
	return merged
}

func overlaps(a, b Region) bool {
	return a.X1 < b.X2 && a.X2 > b.X1 && a.Y1 < b.Y2 && a.Y2 > b.Y1
}

func unionRegion(a, b Region) Region {
	return Region{
		X1: min(a.X1, b.X1),
		Y1: min(a.Y1, b.Y1),
		X2: max(a.X2, b.X2),
		Y2: max(a.Y2, b.Y2),
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
