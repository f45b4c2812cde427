// Package wayland connects the session to a compositor through
// go-wayland. Handlers registered on protocol objects only translate
// events into session events and queue them; Session decides what to
// do with them.
package wayland

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bnema/waysurf/internal/logger"
	"github.com/bnema/waysurf/internal/session"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// ErrClosed is returned when reading from a closed connection.
var ErrClosed = errors.New("wayland connection closed")

// Conn is a live compositor connection with its registry.
type Conn struct {
	display  *client.Display
	registry *client.Registry

	// dispatch reads and dispatches one message.
	dispatch func() error

	queue eventQueue

	// fatal is set by the wl_display.error handler.
	fatal error

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// Connect opens the socket named name, or WAYLAND_DISPLAY when name is
// empty, and requests the registry. Globals arrive as events on the
// first Roundtrip.
func Connect(name string) (*Conn, error) {
	display, err := client.Connect(name)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to display %q: %w", session.ErrConnection, displayName(name), err)
	}

	c := &Conn{display: display}
	c.dispatch = display.Context().Dispatch

	display.SetErrorHandler(func(e client.DisplayErrorEvent) {
		c.fatal = &session.ProtocolError{
			Op:  "display",
			Err: fmt.Errorf("%w: compositor reported error %d: %s", session.ErrProtocolViolation, e.Code, e.Message),
		}
	})

	registry, err := display.GetRegistry()
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("%w: get registry: %w", session.ErrConnection, err)
	}
	c.registry = registry

	registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		c.queue.push(session.GlobalEvent{Global: session.Global{
			Name:      e.Name,
			Interface: e.Interface,
			Version:   e.Version,
		}})
	})
	registry.SetGlobalRemoveHandler(func(e client.RegistryGlobalRemoveEvent) {
		c.queue.push(session.GlobalRemoveEvent{Name: e.Name})
	})

	logger.Debug("Connected to compositor", "display", displayName(name))
	return c, nil
}

// Roundtrip sends wl_display.sync and dispatches until its callback
// fires, then returns every event queued on the way.
func (c *Conn) Roundtrip() ([]session.Event, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}

	callback, err := c.display.Sync()
	if err != nil {
		return nil, fmt.Errorf("sync: %w", err)
	}
	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	// The compositor destroys the callback once done is sent.
	defer func() { _ = callback.Destroy() }()

	for !done {
		if err := c.step(); err != nil {
			return nil, err
		}
	}
	return c.queue.drain(), nil
}

// ReadBatch blocks until at least one event is queued and returns all
// of them.
func (c *Conn) ReadBatch() ([]session.Event, error) {
	for c.queue.empty() {
		if err := c.step(); err != nil {
			return nil, err
		}
	}
	return c.queue.drain(), nil
}

func (c *Conn) step() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := c.dispatch(); err != nil {
		return err
	}
	if c.fatal != nil {
		return c.fatal
	}
	return nil
}

// Close disconnects from the compositor. It is safe to call more than
// once and from another goroutine to interrupt a blocked read.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if c.display != nil {
			if err := c.display.Context().Close(); err != nil {
				c.closeErr = fmt.Errorf("close display: %w", err)
			}
		}
		logger.Debug("Disconnected from compositor")
	})
	return c.closeErr
}

func displayName(name string) string {
	if name == "" {
		return "$WAYLAND_DISPLAY"
	}
	return name
}

// eventQueue collects events raised by go-wayland handlers during one
// dispatch call.
type eventQueue struct {
	events []session.Event
}

func (q *eventQueue) push(ev session.Event) {
	q.events = append(q.events, ev)
}

func (q *eventQueue) empty() bool {
	return len(q.events) == 0
}

func (q *eventQueue) drain() []session.Event {
	events := q.events
	q.events = nil
	return events
}
