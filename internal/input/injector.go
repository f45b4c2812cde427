// Package input creates virtual input devices for exercising a running
// window without a physical keyboard.
package input

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/waysurf/internal/logger"
)

// DefaultDevicePath is the uinput character device.
const DefaultDevicePath = "/dev/uinput"

// ErrInjectorClosed is returned when using an injector after Close.
var ErrInjectorClosed = errors.New("injector is closed")

// keyDevice is the part of uinput.Keyboard the injector uses.
type keyDevice interface {
	KeyPress(key int) error
	Close() error
}

// Injector sends key presses through a virtual keyboard.
type Injector struct {
	dev    keyDevice
	mu     sync.Mutex
	closed bool
}

// NewInjector registers a virtual keyboard at path.
func NewInjector(path string) (*Injector, error) {
	if path == "" {
		path = DefaultDevicePath
	}
	keyboard, err := uinput.CreateKeyboard(path, []byte("waysurf virtual keyboard"))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	return &Injector{dev: keyboard}, nil
}

// Tap presses and releases the key with Linux input event code code.
func (i *Injector) Tap(code uint32) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return ErrInjectorClosed
	}
	if err := i.dev.KeyPress(int(code)); err != nil {
		return fmt.Errorf("press key %d: %w", code, err)
	}
	logger.Debug("Injected key press", "code", code)
	return nil
}

// TapAfter waits for delay, giving the compositor time to focus the
// window, then taps code. It returns ctx.Err() if ctx ends first.
func (i *Injector) TapAfter(ctx context.Context, delay time.Duration, code uint32) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return i.Tap(code)
	}
}

// Close removes the virtual device.
func (i *Injector) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return nil
	}
	i.closed = true
	return i.dev.Close()
}
