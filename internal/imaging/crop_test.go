package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createQuadrantImage fills each quadrant with a different gray level:
// top-left 0, top-right 80, bottom-left 160, bottom-right 240.
func createQuadrantImage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(0)
			if x >= width/2 {
				v += 80
			}
			if y >= height/2 {
				v += 160
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestParseRegion(t *testing.T) {
	tests := []struct {
		in       string
		want     Region
		wantName string
		wantErr  bool
	}{
		{in: "0,0,10,20", want: Region{0, 0, 10, 20}},
		{in: " 5, 6 ,7,8 ", want: Region{5, 6, 7, 8}},
		{in: "top-half", wantName: "top-half"},
		{in: "CENTER", wantName: "center"},
		{in: "1,2,3", wantErr: true},
		{in: "a,b,c,d", wantErr: true},
		{in: "10,10,5,20", wantErr: true},
		{in: "middle", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, name, err := ParseRegion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestNamedRegion(t *testing.T) {
	tests := map[string]Region{
		"top-left":     {0, 0, 50, 40},
		"top-right":    {50, 0, 100, 40},
		"bottom-left":  {0, 40, 50, 80},
		"bottom-right": {50, 40, 100, 80},
		"top-half":     {0, 0, 100, 40},
		"bottom-half":  {0, 40, 100, 80},
		"left-half":    {0, 0, 50, 80},
		"right-half":   {50, 0, 100, 80},
		"center":       {25, 20, 75, 60},
	}
	for name, want := range tests {
		got, err := NamedRegion(name, 100, 80)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := NamedRegion("nowhere", 100, 80)
	assert.Error(t, err)
}

func TestRaster_Crop(t *testing.T) {
	r := newRaster(createQuadrantImage(100, 80), "png", "quad.png")
	r.Page = 3

	region, err := NamedRegion("bottom-right", r.Width, r.Height)
	require.NoError(t, err)

	out, err := r.Crop(region)
	require.NoError(t, err)
	assert.Equal(t, 50, out.Width)
	assert.Equal(t, 40, out.Height)
	assert.Equal(t, 3, out.Page)
	assert.Equal(t, "quad.png", out.Source)

	gray := color.GrayModel.Convert(out.Image.At(out.Image.Bounds().Min.X, out.Image.Bounds().Min.Y)).(color.Gray)
	assert.Equal(t, uint8(240), gray.Y)
}

func TestRaster_CropOffsetOrigin(t *testing.T) {
	// A sub-image keeps its parent's coordinates; regions stay origin-relative.
	parent := createQuadrantImage(100, 80)
	sub := parent.SubImage(image.Rect(50, 0, 100, 80))
	r := newRaster(sub, "bitmap", "sub")

	out, err := r.Crop(Region{0, 40, 50, 80})
	require.NoError(t, err)
	gray := color.GrayModel.Convert(out.Image.At(out.Image.Bounds().Min.X, out.Image.Bounds().Min.Y)).(color.Gray)
	assert.Equal(t, uint8(240), gray.Y)
}

func TestRaster_CropInvalid(t *testing.T) {
	r := newRaster(createQuadrantImage(100, 80), "png", "quad.png")

	_, err := r.Crop(Region{0, 0, 200, 10})
	assert.Error(t, err)

	_, err = r.Crop(Region{10, 10, 10, 20})
	assert.Error(t, err)

	_, err = r.Crop(Region{-1, 0, 10, 10})
	assert.Error(t, err)
}
