package plot

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const margin = 8

var (
	background = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	axisColor  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	lineColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
)

// viridis control points, sampled evenly over [0, 1].
var viridis = []color.RGBA{
	{R: 68, G: 1, B: 84, A: 255},
	{R: 72, G: 40, B: 120, A: 255},
	{R: 62, G: 74, B: 137, A: 255},
	{R: 49, G: 104, B: 142, A: 255},
	{R: 38, G: 130, B: 142, A: 255},
	{R: 31, G: 158, B: 137, A: 255},
	{R: 53, G: 183, B: 121, A: 255},
	{R: 109, G: 205, B: 89, A: 255},
	{R: 180, G: 222, B: 44, A: 255},
	{R: 253, G: 231, B: 37, A: 255},
}

// colormap maps t in [0, 1] to a viridis color.
func colormap(t float64) color.RGBA {
	if math.IsNaN(t) || t <= 0 {
		return viridis[0]
	}
	if t >= 1 {
		return viridis[len(viridis)-1]
	}

	pos := t * float64(len(viridis)-1)
	i := int(pos)
	frac := pos - float64(i)
	a, b := viridis[i], viridis[i+1]
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + frac*(float64(y)-float64(x))))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func canvas(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
	return img
}

func drawAxes(img *image.RGBA) {
	b := img.Bounds()
	for x := margin; x < b.Dx()-margin; x++ {
		img.SetRGBA(x, b.Dy()-margin, axisColor)
	}
	for y := margin; y <= b.Dy()-margin; y++ {
		img.SetRGBA(margin, y, axisColor)
	}
}

// lineChart draws values left to right scaled to the plot area.
// Non-finite values break the line.
func lineChart(values []float64, width, height int) *image.RGBA {
	img := canvas(width, height)
	drawAxes(img)

	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return img
	}

	low, high := floats.Min(finite), floats.Max(finite)
	if high == low {
		high = low + 1
	}

	plotW := float64(width - 3*margin)
	plotH := float64(height - 3*margin)
	project := func(i int, v float64) (int, int) {
		x := float64(2 * margin)
		if len(values) > 1 {
			x += plotW * float64(i) / float64(len(values)-1)
		}
		y := float64(height-2*margin) - plotH*(v-low)/(high-low)
		return int(math.Round(x)), int(math.Round(y))
	}

	prevOK := false
	var px, py int
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			prevOK = false
			continue
		}
		x, y := project(i, v)
		if prevOK {
			segment(img, px, py, x, y, lineColor)
		} else {
			img.SetRGBA(x, y, lineColor)
		}
		px, py, prevOK = x, y, true
	}
	return img
}

// segment draws a line with Bresenham's algorithm.
func segment(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetRGBA(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// heatmap paints m with row 0 at the bottom, columns left to right, each
// cell colored by its position between the matrix min and max.
func heatmap(m mat.Matrix, width, height int) *image.RGBA {
	img := canvas(width, height)
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		drawAxes(img)
		return img
	}

	low, high := math.Inf(1), math.Inf(-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			low = math.Min(low, v)
			high = math.Max(high, v)
		}
	}
	span := high - low
	if !(span > 0) {
		span = 1
	}

	area := image.Rect(2*margin, margin, width-margin, height-2*margin)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		row := rows - 1 - (y-area.Min.Y)*rows/area.Dy()
		for x := area.Min.X; x < area.Max.X; x++ {
			col := (x - area.Min.X) * cols / area.Dx()
			img.SetRGBA(x, y, colormap((m.At(row, col)-low)/span))
		}
	}
	drawAxes(img)
	return img
}

func encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
