package render

// Gradient fades red from the top-left corner, green from the top-right
// and blue from the bottom-left. Channel values use integer division so
// the output is exact and reproducible.
type Gradient struct{}

// Render implements Renderer.
func (Gradient) Render(width, height int) ([]byte, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	w, h := uint32(width), uint32(height)
	pixels := make([]byte, 0, width*height*4)
	for y := uint32(0); y < h; y++ {
		for x := uint32(0); x < w; x++ {
			r := min(((w-x)*0xFF)/w, ((h-y)*0xFF)/h)
			g := min((x*0xFF)/w, ((h-y)*0xFF)/h)
			b := min(((w-x)*0xFF)/w, (y*0xFF)/h)
			pixels = append(pixels, byte(r), byte(g), byte(b), 0xFF)
		}
	}
	return pixels, nil
}
