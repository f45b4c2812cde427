package render

import (
	"image/color"
	"math"
)

// Vertex is a position in normalized device coordinates: x grows to the
// right, y grows downwards, both span [-1, 1] across the target.
type Vertex struct {
	X, Y float64
}

// Triangle rasterizes a single flat-shaded triangle over a cleared
// background. Pixels are sampled at their centers.
type Triangle struct {
	Clear    color.RGBA
	Fill     color.RGBA
	Vertices [3]Vertex
}

// NewTriangle returns the default scene: a small white triangle pointing
// up, centered on a dark grey background.
func NewTriangle() Triangle {
	grey := unorm(0.2)
	return Triangle{
		Clear: color.RGBA{R: grey, G: grey, B: grey, A: 0xFF},
		Fill:  color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		Vertices: [3]Vertex{
			{X: -0.1, Y: 0.1},
			{X: 0.1, Y: 0.1},
			{X: 0.0, Y: -0.141421356},
		},
	}
}

// Render implements Renderer.
func (t Triangle) Render(width, height int) ([]byte, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	v0, v1, v2 := t.Vertices[0], t.Vertices[1], t.Vertices[2]
	area := edge(v0, v1, v2)

	pixels := make([]byte, width*height*4)
	for y := 0; y < height; y++ {
		ny := (float64(y)+0.5)/float64(height)*2 - 1
		for x := 0; x < width; x++ {
			nx := (float64(x)+0.5)/float64(width)*2 - 1
			p := Vertex{X: nx, Y: ny}

			c := t.Clear
			if area != 0 && inside(area, edge(v1, v2, p), edge(v2, v0, p), edge(v0, v1, p)) {
				c = t.Fill
			}

			i := (y*width + x) * 4
			pixels[i], pixels[i+1], pixels[i+2], pixels[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return pixels, nil
}

// edge is twice the signed area of (a, b, p).
func edge(a, b, p Vertex) float64 {
	return (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
}

// inside accepts either winding order.
func inside(area, w0, w1, w2 float64) bool {
	if area < 0 {
		w0, w1, w2 = -w0, -w1, -w2
	}
	return w0 >= 0 && w1 >= 0 && w2 >= 0
}

func unorm(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
