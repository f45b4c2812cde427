// Package render produces the pixel content shown in the window.
//
// Renderers return tightly packed RGBA8 pixels, row-major, top-left
// first. Converting to the compositor's byte order is the job of the
// shared memory buffer, not of the renderer.
package render

import (
	"fmt"
)

// Renderer produces an RGBA pixel buffer of width*height*4 bytes.
type Renderer interface {
	Render(width, height int) ([]byte, error)
}

// Func adapts an ordinary function to the Renderer interface.
type Func func(width, height int) ([]byte, error)

// Render calls f(width, height).
func (f Func) Render(width, height int) ([]byte, error) {
	return f(width, height)
}

// New returns the renderer registered under mode.
func New(mode string) (Renderer, error) {
	switch mode {
	case "gradient", "":
		return Gradient{}, nil
	case "triangle":
		return NewTriangle(), nil
	default:
		return nil, fmt.Errorf("unknown render mode %q", mode)
	}
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid render size %dx%d", width, height)
	}
	return nil
}
